package server

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"ircchat/internal/protocol"
)

func addSession(t *testing.T, r *Registry, name string) *Session {
	t.Helper()
	s := newSession(nil)
	r.Add(s)
	if name != "" {
		if err := r.SetUsername(s, name); err != nil {
			t.Fatalf("SetUsername(%q) failed: %v", name, err)
		}
	}
	return s
}

func TestSetUsernameUniqueness(t *testing.T) {
	r := NewRegistry()
	addSession(t, r, "alice")

	imposter := newSession(nil)
	r.Add(imposter)
	if err := r.SetUsername(imposter, "alice"); !errors.Is(err, ErrNameExists) {
		t.Fatalf("duplicate name: got %v, want ErrNameExists", err)
	}
	if r.Username(imposter) != "" {
		t.Error("failed login must not mutate the session")
	}
	if err := r.SetUsername(imposter, "bob"); err != nil {
		t.Fatalf("distinct name rejected: %v", err)
	}
}

func TestSetUsernameRename(t *testing.T) {
	r := NewRegistry()
	s := addSession(t, r, "alice")

	// Re-login with the same name conflicts with nobody.
	if err := r.SetUsername(s, "alice"); err != nil {
		t.Fatalf("re-login with own name failed: %v", err)
	}
	if err := r.SetUsername(s, "alicia"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if _, ok := r.FindByUsername("alicia"); !ok {
		t.Error("renamed session not found by new name")
	}
}

func TestSetUsernameValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"Empty", "", protocol.ErrIllegalName},
		{"Separator", "ali.ce", protocol.ErrIllegalName},
		{"TooLong", strings.Repeat("x", protocol.MaxNameLen+1), protocol.ErrNameLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			s := newSession(nil)
			r.Add(s)
			if err := r.SetUsername(s, tt.input); !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
			if r.Username(s) != "" {
				t.Error("rejected name must not mutate the session")
			}
			if r.Member(s, protocol.DefaultRoom) {
				t.Error("rejected login must not seed the default room")
			}
		})
	}
}

func TestLoginSeedsDefaultRoom(t *testing.T) {
	r := NewRegistry()
	s := addSession(t, r, "alice")
	if !r.Member(s, protocol.DefaultRoom) {
		t.Error("default room missing after login")
	}
}

func TestConcurrentLoginsSameName(t *testing.T) {
	r := NewRegistry()

	const n = 16
	sessions := make([]*Session, n)
	for i := range sessions {
		sessions[i] = newSession(nil)
		r.Add(sessions[i])
	}

	var wg sync.WaitGroup
	results := make([]error, n)
	for i, s := range sessions {
		wg.Add(1)
		go func(i int, s *Session) {
			defer wg.Done()
			results[i] = r.SetUsername(s, "highlander")
		}(i, s)
	}
	wg.Wait()

	won := 0
	for _, err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrNameExists):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 {
		t.Fatalf("%d concurrent logins succeeded, want exactly 1", won)
	}
}

func TestJoinRoomIdempotent(t *testing.T) {
	r := NewRegistry()
	s := addSession(t, r, "alice")

	if !r.JoinRoom(s, "lobby") {
		t.Error("first join should report a new membership")
	}
	if r.JoinRoom(s, "lobby") {
		t.Error("second join should be a no-op")
	}
	if !r.Member(s, "lobby") {
		t.Error("membership lost after idempotent join")
	}
}

func TestLeaveRoom(t *testing.T) {
	r := NewRegistry()
	s := addSession(t, r, "alice")
	r.JoinRoom(s, "lobby")

	if r.LeaveRoom(s, protocol.DefaultRoom) {
		t.Error("default room must not be leavable")
	}
	if r.LeaveRoom(s, "nowhere") {
		t.Error("leaving an unjoined room should be a no-op")
	}
	if !r.LeaveRoom(s, "lobby") {
		t.Error("leaving a joined room failed")
	}
	if r.Member(s, "lobby") {
		t.Error("membership survived leave")
	}
}

func TestRoomEnumeration(t *testing.T) {
	r := NewRegistry()
	alice := addSession(t, r, "alice")
	bob := addSession(t, r, "bob")
	r.JoinRoom(alice, "lobby")
	r.JoinRoom(bob, "lobby")
	r.JoinRoom(bob, "games")

	rooms := r.Rooms()
	want := []string{protocol.DefaultRoom, "games", "lobby"}
	if len(rooms) != len(want) {
		t.Fatalf("Rooms() = %v, want %v", rooms, want)
	}
	for i := range want {
		if rooms[i] != want[i] {
			t.Fatalf("Rooms() = %v, want %v", rooms, want)
		}
	}

	users := Usernames(r.InRoom("lobby"), r)
	if len(users) != 2 || users[0] != "alice" || users[1] != "bob" {
		t.Errorf("InRoom(lobby) users = %v", users)
	}
	if got := Usernames(r.InRoom("games"), r); len(got) != 1 || got[0] != "bob" {
		t.Errorf("InRoom(games) users = %v", got)
	}
}

func TestRemove(t *testing.T) {
	r := NewRegistry()
	s := addSession(t, r, "alice")

	if !r.Remove(s) {
		t.Error("first remove should report presence")
	}
	if r.Remove(s) {
		t.Error("second remove should report absence")
	}
	if _, ok := r.FindByUsername("alice"); ok {
		t.Error("removed session still found by name")
	}
}
