package sqlsafe

import "testing"

func TestCheckArgsForInjection(t *testing.T) {
	tests := []struct {
		name string
		args []any
		hit  bool
	}{
		{name: "no args", args: nil, hit: false},
		{name: "plain string", args: []any{"alice"}, hit: false},
		{name: "numbers ignored", args: []any{42, 3.14}, hit: false},
		{name: "classic tautology", args: []any{"' OR '1'='1"}, hit: true},
		{name: "union select", args: []any{"1 UNION SELECT password FROM users"}, hit: true},
		{name: "second position", args: []any{"bob", "'; DROP TABLE users; --"}, hit: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckArgsForInjection(tt.args)
			if tt.hit && result == nil {
				t.Error("expected an injection hit")
			}
			if !tt.hit && result != nil {
				t.Errorf("unexpected hit: %+v", result)
			}
		})
	}
}

func TestCheckArgsForInjection_ReportsPosition(t *testing.T) {
	result := CheckArgsForInjection([]any{"ok", "' OR '1'='1"})
	if result == nil {
		t.Fatal("expected a hit")
	}
	if result.Position != 1 {
		t.Errorf("expected position 1, got %d", result.Position)
	}
	if result.Fingerprint == "" {
		t.Error("expected a fingerprint")
	}
}
