package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

type Config struct {
	IP                          string        `env:"MESSENGER_IP,default=127.0.0.1" validate:"ip"`
	Port                        int           `env:"MESSENGER_PORT,default=8080" validate:"min=1,max=65535"`
	LogLevel                    string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
	StaticDir                   string        `env:"STATIC_DIR,default=./static"`
	ICEServers                  string        `env:"ICE_SERVERS,default=stun:stun.l.google.com:19302"`
	WebRTCIncludeLoopback       bool          `env:"WEB_RTC_INCLUDE_LOOPBACK,default=false"`
	WebSocketHeartbeatInterval  time.Duration `env:"WEB_SOCKET_HEARTBEAT_INTERVAL,default=15s" validate:"gt=0"`
	WebSocketClientTimeout      time.Duration `env:"WEB_SOCKET_CLIENT_TIMEOUT,default=45s" validate:"gtfield=WebSocketHeartbeatInterval"`
	WebRTCHeartbeatInterval     time.Duration `env:"WEB_RTC_HEARTBEAT_INTERVAL,default=5s" validate:"gt=0"`
	WebRTCClientTimeout         time.Duration `env:"WEB_RTC_CLIENT_TIMEOUT,default=15s" validate:"gtfield=WebRTCHeartbeatInterval"`
	WebRTCDataChannelBufferSize int           `env:"WEB_RTC_DATA_CHANNEL_BUFFER_SIZE,default=65536" validate:"min=1024"`
	WebSocketReadLimit          int64         `env:"WEB_SOCKET_READ_LIMIT,default=65536" validate:"min=1024"`
	MailboxSize                 int           `env:"MAILBOX_SIZE,default=64" validate:"min=1"`
	FanoutBufferSize            int           `env:"FANOUT_BUFFER_SIZE,default=1024" validate:"min=1"`
	FanoutPublishTimeout        time.Duration `env:"FANOUT_PUBLISH_TIMEOUT,default=250ms" validate:"min=0"`
	SessionTokenSecret          string        `env:"SESSION_TOKEN_SECRET"`
	ModerationEnabled           bool          `env:"MODERATION_ENABLED,default=false"`
	ModerationCharReplacement   string        `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`
	WebSocketAllowAnyOrigin     bool          `env:"WEB_SOCKET_ALLOW_ANY_ORIGIN,default=false"`
	WebSocketOriginPatterns     string        `env:"WEB_SOCKET_ORIGIN_PATTERNS"`
	ReportInterval              time.Duration `env:"REPORT_INTERVAL,default=1m" validate:"min=0"`
	LimitMessages               *int          `env:"LIMIT_MESSAGES" validate:"omitempty,min=0"`
}

// loadConfig reads the environment; a .env file, if any, is loaded beforehand.
func loadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := config.CharacterRune(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.IP, c.Port)
}

// ICEServerURLs splits the comma separated ICE_SERVERS value. Empty means host candidates only.
func (c Config) ICEServerURLs() []string {
	return splitList(c.ICEServers)
}

// OriginPatterns lists the extra hosts allowed to open the WebSocket, comma separated.
func (c Config) OriginPatterns() []string {
	return splitList(c.WebSocketOriginPatterns)
}

func (c Config) CharacterRune() (rune, error) {
	r := []rune(c.ModerationCharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			c.ModerationCharReplacement,
		)
	}
	return r[0], nil
}

func splitList(value string) []string {
	items := lo.Map(strings.Split(value, ","), func(s string, _ int) string { return strings.TrimSpace(s) })
	return lo.Compact(items)
}
