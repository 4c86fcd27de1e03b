package protocol

import (
	"fmt"
	"messenger/errors"
	"reflect"
	"strconv"
	"strings"
)

// TagKey is the key of the discriminant, always the first entry of an encoded payload.
const TagKey = "t"

// Payload is one variant of a tagged union. Tag 0 is reserved for None.
type Payload interface {
	Tag() int
}

type variant struct {
	typ  reflect.Type
	keys []string
}

// Union lists the payload variants one channel understands.
type Union struct {
	none     Payload
	variants map[string]variant
}

func NewUnion(none Payload, payloads ...Payload) Union {
	u := Union{none: none, variants: make(map[string]variant, len(payloads))}
	for _, p := range payloads {
		typ := reflect.TypeOf(p)
		u.variants[strconv.Itoa(p.Tag())] = variant{typ: typ, keys: fieldKeys(typ)}
	}
	return u
}

func (u Union) None() Payload { return u.none }

func (u Union) IsNone(p Payload) bool {
	return p == nil || p.Tag() == u.none.Tag()
}

// EncodePayload writes t followed by each field in declaration order.
func EncodePayload(codec Codec, payload Payload) ([]byte, error) {
	value := reflect.Indirect(reflect.ValueOf(payload))
	typ := value.Type()
	entries := make([]Entry, 0, typ.NumField()+1)
	entries = append(entries, Entry{Key: TagKey, Value: payload.Tag()})
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		entries = append(entries, Entry{Key: fieldKey(field), Value: value.Field(i).Interface()})
	}
	return codec.MarshalEntries(entries)
}

// DecodePayload fails only when data is not a non-empty map.
// The first entry is taken as the discriminant whatever its key.
// Unknown tags and missing or mistyped fields give the None variant.
func (u Union) DecodePayload(codec Codec, data []byte) (Payload, error) {
	entries, err := codec.UnmarshalEntries(data)
	if err != nil {
		return nil, err
	}
	entries[0] = Entry{Key: TagKey, Value: fmt.Sprint(entries[0].Value)}

	v, ok := u.variants[entries[0].Value.(string)]
	if !ok {
		return u.none, nil
	}

	fields := make(map[string]any, len(entries)-1)
	for _, entry := range entries[1:] {
		fields[entry.Key] = entry.Value
	}
	for _, key := range v.keys {
		if _, present := fields[key]; !present {
			return u.none, nil
		}
	}

	raw, err := codec.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	target := reflect.New(v.typ)
	if err := codec.Unmarshal(raw, target.Interface()); err != nil {
		return u.none, nil
	}
	return target.Elem().Interface().(Payload), nil
}

func fieldKeys(typ reflect.Type) []string {
	keys := make([]string, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		if typ.Field(i).IsExported() {
			keys = append(keys, fieldKey(typ.Field(i)))
		}
	}
	return keys
}

func fieldKey(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("msgpack"), ",")
	if name == "" {
		return field.Name
	}
	return name
}
