/*
Copyright © 2026 HexDino
*/

// Package protocol implements the line-delimited, pipe-separated wire format
// spoken between math puzzle clients and the server.
//
// Every message is a single UTF-8 line. The first field names the message and
// the remaining fields carry its arguments, e.g.
//
//	LOGIN|alice|secret
//	GAME_START|P1+P2-P3=P4|1,2,...|HIDDEN|...|1|5
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Separator splits the fields of a message.
const Separator = "|"

// Hidden replaces a matrix the receiving player must not see.
const Hidden = "HIDDEN"

// Kind identifies a client command.
type Kind int

const (
	KindUnknown Kind = iota
	KindRegister
	KindLogin
	KindListRooms
	KindCreateRoom
	KindJoinRoom
	KindLeaveRoom
	KindReady
	KindStartGame
	KindSubmit
	KindReadyNextRound
	KindChat
	KindPong
	KindLogout
)

var kindNames = map[Kind]string{
	KindRegister:       "REGISTER",
	KindLogin:          "LOGIN",
	KindListRooms:      "LIST_ROOMS",
	KindCreateRoom:     "CREATE_ROOM",
	KindJoinRoom:       "JOIN_ROOM",
	KindLeaveRoom:      "LEAVE_ROOM",
	KindReady:          "READY",
	KindStartGame:      "START_GAME",
	KindSubmit:         "SUBMIT",
	KindReadyNextRound: "READY_NEXT_ROUND",
	KindChat:           "CHAT",
	KindPong:           "PONG",
	KindLogout:         "LOGOUT",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Command is a decoded client message. Only the fields relevant to Kind are set.
type Command struct {
	Kind     Kind
	Username string
	Password string
	RoomName string
	RoomID   int
	Row      int
	Col      int
	Text     string
}

var (
	ErrEmpty          = errors.New("Empty message")
	ErrUnknownCommand = errors.New("Unknown command")
)

// FieldError reports a command with the wrong number or shape of fields.
type FieldError struct {
	Command string
	Reason  string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("Malformed %s: %s", e.Command, e.Reason)
}

// arity is the exact field count (including the command name) each command
// carries. CHAT is variadic and handled separately.
var arity = map[Kind]int{
	KindRegister:       3,
	KindLogin:          3,
	KindListRooms:      1,
	KindCreateRoom:     2,
	KindJoinRoom:       2,
	KindLeaveRoom:      1,
	KindReady:          1,
	KindStartGame:      1,
	KindSubmit:         3,
	KindReadyNextRound: 1,
	KindPong:           1,
	KindLogout:         1,
}

// Decode parses one line into a Command.
func Decode(line string) (Command, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return Command{}, ErrEmpty
	}

	fields := strings.Split(line, Separator)
	kind, ok := kindsByName[strings.TrimSpace(fields[0])]
	if !ok {
		return Command{}, ErrUnknownCommand
	}
	cmd := Command{Kind: kind}

	if kind == KindChat {
		if len(fields) < 2 {
			return Command{}, &FieldError{Command: kind.String(), Reason: "text required"}
		}
		cmd.Text = strings.TrimSpace(strings.Join(fields[1:], Separator))
		if cmd.Text == "" {
			return Command{}, &FieldError{Command: kind.String(), Reason: "text required"}
		}
		return cmd, nil
	}

	if want := arity[kind]; len(fields) != want {
		return Command{}, &FieldError{
			Command: kind.String(),
			Reason:  fmt.Sprintf("expected %d fields, got %d", want, len(fields)),
		}
	}

	var err error
	switch kind {
	case KindRegister, KindLogin:
		cmd.Username = strings.TrimSpace(fields[1])
		cmd.Password = fields[2]
	case KindCreateRoom:
		cmd.RoomName = strings.TrimSpace(fields[1])
	case KindJoinRoom:
		cmd.RoomID, err = parseInt(kind, "room id", fields[1])
	case KindSubmit:
		if cmd.Row, err = parseInt(kind, "row", fields[1]); err != nil {
			return Command{}, err
		}
		cmd.Col, err = parseInt(kind, "col", fields[2])
	}
	if err != nil {
		return Command{}, err
	}

	return cmd, nil
}

func parseInt(kind Kind, name, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &FieldError{Command: kind.String(), Reason: name + " must be an integer"}
	}
	return n, nil
}

// Split breaks an encoded line into its name and fields.
func Split(line string) (string, []string) {
	parts := strings.Split(strings.TrimRight(line, "\r\n"), Separator)
	return parts[0], parts[1:]
}
