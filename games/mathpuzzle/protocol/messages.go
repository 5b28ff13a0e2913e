package protocol

import (
	"strconv"
	"strings"
)

var sanitizer = strings.NewReplacer("|", "/", "\r", " ", "\n", " ")

// Field makes s safe to embed as a single message field.
func Field(s string) string {
	return sanitizer.Replace(s)
}

// Encode joins name and fields into one line, sanitizing each field.
func Encode(name string, fields ...string) string {
	var b strings.Builder
	b.WriteString(name)
	for _, f := range fields {
		b.WriteString(Separator)
		b.WriteString(Field(f))
	}
	return b.String()
}

// RoomSummary is one entry of a ROOM_LIST message.
type RoomSummary struct {
	ID      int
	Name    string
	Players int
}

// SlotStatus is one entry of a ROOM_STATUS message.
type SlotStatus struct {
	Slot  int
	User  string
	Ready bool
	RTT   int
}

// MatrixView is one matrix of a GAME_START message as seen by one player.
type MatrixView struct {
	Hidden bool
	Cells  []int
}

func (m MatrixView) String() string {
	if m.Hidden {
		return Hidden
	}
	vals := make([]string, len(m.Cells))
	for i, c := range m.Cells {
		vals[i] = strconv.Itoa(c)
	}
	return strings.Join(vals, ",")
}

func Welcome(text string) string { return Encode("WELCOME", text) }

func LoginOK(user string) string { return Encode("LOGIN_OK", user) }

func ReconnectOK(user string) string { return Encode("RECONNECT_OK", user) }

func RegisterOK() string { return "REGISTER_OK" }

func LoggedOut() string { return "LOGGED_OUT" }

func Error(reason string) string { return Encode("ERROR", reason) }

// RoomList encodes the lobby listing. Entries are id:name:count.
func RoomList(rooms []RoomSummary) string {
	fields := make([]string, 0, len(rooms))
	for _, r := range rooms {
		fields = append(fields, strconv.Itoa(r.ID)+":"+colonless(r.Name)+":"+strconv.Itoa(r.Players))
	}
	return Encode("ROOM_LIST", fields...)
}

func RoomCreated(id int, name string) string {
	return Encode("ROOM_CREATED", strconv.Itoa(id), name)
}

func RoomJoined(id int) string { return Encode("ROOM_JOINED", strconv.Itoa(id)) }

func LeftRoom() string { return "LEFT_ROOM" }

func PlayerJoined(slot int, user string) string {
	return Encode("PLAYER_JOINED", strconv.Itoa(slot), user)
}

func PlayerLeft(user string) string { return Encode("PLAYER_LEFT", user) }

func PlayerDisconnected(user string) string { return Encode("PLAYER_DISCONNECTED", user) }

func PlayerReconnected(user string) string { return Encode("PLAYER_RECONNECTED", user) }

// RoomStatus encodes the roster. host is -1 when the room has no host.
func RoomStatus(count, host int, slots []SlotStatus) string {
	fields := []string{strconv.Itoa(count), strconv.Itoa(host)}
	for _, s := range slots {
		ready := "0"
		if s.Ready {
			ready = "1"
		}
		fields = append(fields, strconv.Itoa(s.Slot)+":"+colonless(s.User)+":"+ready+":"+strconv.Itoa(s.RTT))
	}
	return Encode("ROOM_STATUS", fields...)
}

func GameStart(equation string, matrices []MatrixView, round, total int) string {
	fields := make([]string, 0, len(matrices)+3)
	fields = append(fields, equation)
	for _, m := range matrices {
		fields = append(fields, m.String())
	}
	fields = append(fields, strconv.Itoa(round), strconv.Itoa(total))
	return Encode("GAME_START", fields...)
}

func Timer(seconds int) string { return Encode("TIMER", strconv.Itoa(seconds)) }

func PlayerSubmitted(slot int, user string) string {
	return Encode("PLAYER_SUBMITTED", strconv.Itoa(slot), user)
}

func Chat(user, text string) string { return Encode("CHAT", user, text) }

func RoundEndWin(text string) string { return Encode("ROUND_END", "WIN", text) }

func WaitContinue(text string) string { return Encode("WAIT_CONTINUE", text) }

func GameEndWin(text string) string { return Encode("GAME_END", "WIN", text) }

func GameEndLose(reason, solution string) string {
	return Encode("GAME_END", "LOSE", reason, solution)
}

func GameAborted(reason string) string { return Encode("GAME_ABORTED", reason) }

func Ping() string { return "PING" }

func ServerShutdown(text string) string { return Encode("SERVER_SHUTDOWN", text) }

func colonless(s string) string {
	return strings.ReplaceAll(s, ":", ";")
}
