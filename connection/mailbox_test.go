package connection

import (
	"messenger/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMailbox_Drops_When_Full_And_Refuses_When_Closed(t *testing.T) {
	req := require.New(t)
	box := newMailbox[int](2)

	req.NoError(box.post(1))
	req.NoError(box.post(2))
	req.ErrorIs(box.post(3), errors.ErrMailboxFull)

	req.Equal(1, <-box.receive())

	// Closing hands back what was still queued
	req.Equal([]int{2}, box.close())
	req.ErrorIs(box.post(4), errors.ErrConnectionClosed)
}
