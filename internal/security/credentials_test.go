package security

import (
	"slices"
	"testing"
)

func TestCredentialStore(t *testing.T) {
	t.Parallel()

	s := NewCredentialStore()
	s.Set("provider.openai", "sk-1")
	s.Set("auth.supabase.jwt_secret", "shh")
	s.Set("empty", "")

	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if v, ok := s.Get("provider.openai"); !ok || v != "sk-1" {
		t.Errorf("Get = %q, %v", v, ok)
	}
	if _, ok := s.Get("empty"); ok {
		t.Error("empty value stored")
	}

	want := []string{"auth.supabase.jwt_secret", "provider.openai"}
	if got := s.Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	values := s.Values()
	slices.Sort(values)
	if !slices.Equal(values, []string{"shh", "sk-1"}) {
		t.Errorf("Values() = %v", values)
	}

	s.Set("provider.openai", "sk-2")
	if v, _ := s.Get("provider.openai"); v != "sk-2" {
		t.Errorf("overwrite: got %q, want sk-2", v)
	}
}
