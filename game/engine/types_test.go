package engine

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestGameUpdate_MarshalJSON(t *testing.T) {
	tests := []struct {
		name   string
		update GameUpdate
		want   string
	}{
		{
			name:   "player joined",
			update: NewPlayerJoined(Player{ID: 2, Health: 10}),
			want:   `{"type":"PlayerJoined","player":{"id":2,"health":10}}`,
		},
		{
			name:   "player died",
			update: NewPlayerDied(7),
			want:   `{"type":"PlayerDied","id":7}`,
		},
		{
			name:   "world update",
			update: NewWorldUpdate(Snapshot{1: {ID: 1, Health: 9}, 0: {ID: 0, Health: 10}}),
			want:   `{"type":"WorldUpdate","players":{"0":{"id":0,"health":10},"1":{"id":1,"health":9}}}`,
		},
		{
			name:   "empty world update keeps players object",
			update: NewWorldUpdate(nil),
			want:   `{"type":"WorldUpdate","players":{}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.update)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal() = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestGameUpdate_MarshalUnknownKind(t *testing.T) {
	if _, err := json.Marshal(GameUpdate{Kind: "Bogus"}); err == nil {
		t.Error("Expected error for unknown kind")
	}
}

func TestGameUpdate_UnmarshalJSON(t *testing.T) {
	var u GameUpdate
	if err := json.Unmarshal([]byte(`{"type":"PlayerDied","id":3}`), &u); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if u.Kind != KindPlayerDied || u.ID != 3 {
		t.Errorf("Unexpected update %+v", u)
	}

	if err := json.Unmarshal([]byte(`{"type":"WorldUpdate","players":{"4":{"id":4,"health":1}}}`), &u); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if u.Kind != KindWorldUpdate || u.Players[4].Health != 1 {
		t.Errorf("Unexpected update %+v", u)
	}

	if err := json.Unmarshal([]byte(`{"type":"PlayerJoined"}`), &u); err == nil {
		t.Error("Expected error for PlayerJoined without player")
	}
}

func TestDecodeClientMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ClientMessage
		wantErr bool
	}{
		{name: "heal", input: `{"type":"HealSelf"}`, want: HealSelf()},
		{name: "attack", input: `{"type":"AttackPlayer","target":12}`, want: AttackPlayer(12)},
		{name: "attack without target", input: `{"type":"AttackPlayer"}`, wantErr: true},
		{name: "unknown type", input: `{"type":"Dance"}`, wantErr: true},
		{name: "missing type", input: `{}`, wantErr: true},
		{name: "not json", input: `heal me`, wantErr: true},
		{name: "negative target", input: `{"type":"AttackPlayer","target":-1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeClientMessage([]byte(tt.input))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedMessage) {
					t.Fatalf("Expected ErrMalformedMessage, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeClientMessage() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeClientMessage() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClientMessage_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(AttackPlayer(5))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"type":"AttackPlayer","target":5}` {
		t.Errorf("Marshal() = %s", data)
	}

	data, err = json.Marshal(HealSelf())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"type":"HealSelf"}` {
		t.Errorf("Marshal() = %s", data)
	}
}

func TestPlayer_Alive(t *testing.T) {
	if (Player{Health: 0}).Alive() {
		t.Error("Player with 0 health reported alive")
	}
	if !(Player{Health: 1}).Alive() {
		t.Error("Player with 1 health reported dead")
	}
}
