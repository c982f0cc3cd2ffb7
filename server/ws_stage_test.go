package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// chattyConn produces a command on every read, like a client spamming
// play/pause.
type chattyConn struct{}

func (chattyConn) ReadJSON(v interface{}) error {
	*(v.(*stageCommand)) = stageCommand{Action: "play"}
	return nil
}

func TestReadCommandsStopsWhenFeedQuits(t *testing.T) {
	commands := make(chan stageCommand)
	quit := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		readCommands(chattyConn{}, commands, quit)
	}()

	// Consume one command so the pump is mid-loop, then walk away without
	// receiving the next one, the way the feed loop does on a write error.
	cmd := <-commands
	assert.Equal(t, "play", cmd.Action)

	close(quit)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("command pump kept running after the feed quit")
	}
}

// closedConn fails every read, like a dropped connection.
type closedConn struct{}

func (closedConn) ReadJSON(interface{}) error {
	return assert.AnError
}

func TestReadCommandsStopsOnReadError(t *testing.T) {
	commands := make(chan stageCommand)
	quit := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		readCommands(closedConn{}, commands, quit)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("command pump kept running after the connection dropped")
	}
}
