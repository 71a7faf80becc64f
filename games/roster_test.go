package games

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRosterAdd(t *testing.T) {
	r := NewRoster()

	p, err := r.Add("  Alice ", " Alien  ")
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Alice", p.Name)
	assert.Equal(t, "Alien", p.Movie)
	assert.Zero(t, p.Votes)
	assert.Equal(t, 1, r.Len())

	q, err := r.Add("Bob", "Brazil")
	require.NoError(t, err)
	assert.NotEqual(t, p.ID, q.ID)

	got := r.Participants()
	require.Len(t, got, 2)
	assert.Equal(t, "Alice", got[0].Name)
	assert.Equal(t, "Bob", got[1].Name)
}

func TestRosterAddRejects(t *testing.T) {
	tests := []struct {
		name  string
		pName string
		movie string
		want  error
	}{
		{"empty name", "", "Heat", ErrEmptyField},
		{"blank name", "   ", "Heat", ErrEmptyField},
		{"empty movie", "Carol", "", ErrEmptyField},
		{"blank movie", "Carol", "\t", ErrEmptyField},
		{"duplicate name", "alice", "Heat", ErrDuplicateName},
		{"duplicate name padded", " ALICE ", "Heat", ErrDuplicateName},
		{"duplicate movie", "Carol", "ALIEN", ErrDuplicateMovie},
		{"name checked before movie", "Alice", "Alien", ErrDuplicateName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRoster()
			_, err := r.Add("Alice", "Alien")
			require.NoError(t, err)
			before := r.Participants()

			_, err = r.Add(tt.pName, tt.movie)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, r.Participants())
		})
	}
}

func TestRosterEdit(t *testing.T) {
	r := NewRoster()
	alice, err := r.Add("Alice", "Alien")
	require.NoError(t, err)
	bob, err := r.Add("Bob", "Brazil")
	require.NoError(t, err)

	require.NoError(t, r.Edit(alice.ID, FieldName, " Alicia "))
	require.NoError(t, r.Edit(alice.ID, FieldMovie, "Aliens"))

	got, ok := r.Get(alice.ID)
	require.True(t, ok)
	assert.Equal(t, "Alicia", got.Name)
	assert.Equal(t, "Aliens", got.Movie)

	// Changing the case of your own value is not a collision.
	require.NoError(t, r.Edit(bob.ID, FieldName, "BOB"))

	assert.ErrorIs(t, r.Edit(bob.ID, FieldName, "alicia"), ErrDuplicateEntry)
	assert.ErrorIs(t, r.Edit(bob.ID, FieldMovie, "ALIENS"), ErrDuplicateEntry)
	assert.ErrorIs(t, r.Edit(bob.ID, FieldMovie, "  "), ErrEmptyField)
	assert.ErrorIs(t, r.Edit(bob.ID, Field("year"), "1985"), ErrUnknownField)
	assert.ErrorIs(t, r.Edit("nope", FieldName, "Zed"), ErrUnknownParticipant)

	got, _ = r.Get(bob.ID)
	assert.Equal(t, "BOB", got.Name)
	assert.Equal(t, "Brazil", got.Movie)
}

func TestRosterRemove(t *testing.T) {
	r := NewRoster()
	alice, err := r.Add("Alice", "Alien")
	require.NoError(t, err)
	_, err = r.Add("Bob", "Brazil")
	require.NoError(t, err)

	assert.True(t, r.Remove(alice.ID))
	assert.False(t, r.Remove(alice.ID))
	assert.False(t, r.Remove("missing"))
	assert.Equal(t, 1, r.Len())

	_, ok := r.Get(alice.ID)
	assert.False(t, ok)

	// Freed values can be reused.
	_, err = r.Add("alice", "alien")
	assert.NoError(t, err)
}

func TestRosterParticipantsIsACopy(t *testing.T) {
	r := NewRoster()
	_, err := r.Add("Alice", "Alien")
	require.NoError(t, err)

	got := r.Participants()
	got[0].Name = "Mallory"

	assert.Equal(t, "Alice", r.Participants()[0].Name)
}
