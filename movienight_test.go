package main

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Seednode/movienight/games"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serverMessage decodes either a StateMessage or a NoticeMessage.
type serverMessage struct {
	Type    string         `json:"type"`
	Session games.Snapshot `json:"session"`
	Kind    string         `json:"kind"`
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Field   string         `json:"field"`
}

type testServer struct {
	srv *httptest.Server
	gm  *GameManager
	cfg *Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := validConfig()
	cfg.seed = 1

	mux, gm := newRouter(cfg, make(chan error, 64))
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		gm.Close()
		srv.Close()
	})

	return &testServer{srv: srv, gm: gm, cfg: cfg}
}

func (ts *testServer) dial(t *testing.T, gameID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/movienight/" + gameID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func next(t *testing.T, conn *websocket.Conn) serverMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg serverMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func nextState(t *testing.T, conn *websocket.Conn) games.Snapshot {
	t.Helper()

	msg := next(t, conn)
	require.Equal(t, "state", msg.Type, "got notice %q: %s", msg.Kind, msg.Message)
	return msg.Session
}

func nextNotice(t *testing.T, conn *websocket.Conn) serverMessage {
	t.Helper()

	msg := next(t, conn)
	require.Equal(t, "notice", msg.Type)
	return msg
}

func write(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()

	require.NoError(t, conn.WriteJSON(msg))
}

func TestSessionOverWebsocket(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "game0001")

	snap := nextState(t, conn)
	assert.Equal(t, games.StateAwaitingRoster, snap.State)
	assert.Empty(t, snap.Participants)
	assert.Equal(t, 3, snap.Needed)

	write(t, conn, ClientMessage{Type: "add", Name: "Ann", Movie: "Arrival"})
	snap = nextState(t, conn)
	require.Len(t, snap.Participants, 1)
	ann := snap.Participants[0]

	write(t, conn, ClientMessage{Type: "add", Name: "ann", Movie: "Zodiac"})
	notice := nextNotice(t, conn)
	assert.Equal(t, "duplicate_name", notice.Kind)
	assert.Equal(t, "Duplicate Name", notice.Title)
	assert.Equal(t, "name", notice.Field)

	write(t, conn, ClientMessage{Type: "add", Name: "Zed", Movie: "ARRIVAL"})
	assert.Equal(t, "duplicate_movie", nextNotice(t, conn).Kind)

	write(t, conn, ClientMessage{Type: "add", Name: " ", Movie: "Heat"})
	assert.Equal(t, "empty_field", nextNotice(t, conn).Kind)

	write(t, conn, ClientMessage{Type: "add", Name: "Ben", Movie: "Big"})
	nextState(t, conn)
	write(t, conn, ClientMessage{Type: "add", Name: "Cat", Movie: "Cars"})
	snap = nextState(t, conn)
	require.Equal(t, games.StateVoting, snap.State)
	require.Len(t, snap.Order, 3)
	ben := snap.Participants[1]

	// Everyone votes for Ann, and Ann votes for Ben.
	for snap.State == games.StateVoting {
		voter := snap.CurrentVoter
		require.NotEmpty(t, voter)

		if voter == ann.ID {
			write(t, conn, ClientMessage{Type: "vote", VoterID: voter, VotedForID: ann.ID})
			notice := nextNotice(t, conn)
			assert.Equal(t, "self_vote", notice.Kind)
			assert.Equal(t, "You cannot vote for your own movie!", notice.Message)

			write(t, conn, ClientMessage{Type: "vote", VoterID: voter, VotedForID: ben.ID})
		} else {
			write(t, conn, ClientMessage{Type: "vote", VoterID: voter, VotedForID: ann.ID})
		}
		snap = nextState(t, conn)
	}

	assert.Equal(t, games.StateComplete, snap.State)
	require.NotNil(t, snap.Outcome.Winner)
	assert.Equal(t, "Arrival", snap.Outcome.Winner.Movie)
	assert.Equal(t, 3, snap.TotalVotes)

	write(t, conn, ClientMessage{Type: "tie_break"})
	assert.Equal(t, "rejected", nextNotice(t, conn).Kind)

	write(t, conn, ClientMessage{Type: "reset"})
	snap = nextState(t, conn)
	assert.Equal(t, games.StateAwaitingRoster, snap.State)
	assert.Empty(t, snap.Participants)
}

func TestTieBreakOverWebsocket(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "tiebreak")
	nextState(t, conn)

	var snap games.Snapshot
	for _, pair := range [][2]string{{"A", "Movie1"}, {"B", "Movie2"}, {"C", "Movie3"}} {
		write(t, conn, ClientMessage{Type: "add", Name: pair[0], Movie: pair[1]})
		snap = nextState(t, conn)
	}

	// Each voter picks the next participant along, so everyone ends on one vote.
	ids := make([]string, len(snap.Participants))
	for i, p := range snap.Participants {
		ids[i] = p.ID
	}
	nextOf := func(id string) string {
		for i := range ids {
			if ids[i] == id {
				return ids[(i+1)%len(ids)]
			}
		}
		return ""
	}

	for snap.State == games.StateVoting {
		write(t, conn, ClientMessage{Type: "vote", VoterID: snap.CurrentVoter, VotedForID: nextOf(snap.CurrentVoter)})
		snap = nextState(t, conn)
	}

	require.Equal(t, games.StateTieBreak, snap.State)
	assert.Len(t, snap.Outcome.Tied, 3)
	assert.Nil(t, snap.Outcome.Winner)

	order := snap.Order

	write(t, conn, ClientMessage{Type: "tie_break"})
	snap = nextState(t, conn)
	assert.Equal(t, games.StateVoting, snap.State)
	assert.Equal(t, 2, snap.Round)
	assert.Zero(t, snap.TotalVotes)
	assert.Len(t, snap.Candidates, 3)
	require.Len(t, snap.Order, 3)
	for i := range order {
		assert.Equal(t, order[i].ID, snap.Order[i].ID)
	}
}

func TestEditOverWebsocket(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "editing1")
	nextState(t, conn)

	write(t, conn, ClientMessage{Type: "add", Name: "Ann", Movie: "Arrival"})
	nextState(t, conn)
	write(t, conn, ClientMessage{Type: "add", Name: "Ben", Movie: "Big"})
	snap := nextState(t, conn)
	ann := snap.Participants[0]

	write(t, conn, ClientMessage{Type: "begin_edit", ID: ann.ID, Field: "movie"})
	snap = nextState(t, conn)
	require.NotNil(t, snap.Editing)
	assert.Equal(t, "Arrival", snap.Editing.Draft)

	// Drafts are not broadcast; the commit is the next thing we hear about.
	write(t, conn, ClientMessage{Type: "update_draft", Value: "big"})
	write(t, conn, ClientMessage{Type: "commit_edit"})
	notice := nextNotice(t, conn)
	assert.Equal(t, "duplicate_entry", notice.Kind)
	assert.Equal(t, "This movie is already taken", notice.Message)

	write(t, conn, ClientMessage{Type: "update_draft", Value: ""})
	write(t, conn, ClientMessage{Type: "commit_edit"})
	notice = nextNotice(t, conn)
	assert.Equal(t, "empty_field", notice.Kind)
	assert.Equal(t, "Movie cannot be empty", notice.Message)

	write(t, conn, ClientMessage{Type: "update_draft", Value: "Alien"})
	write(t, conn, ClientMessage{Type: "commit_edit"})
	snap = nextState(t, conn)
	assert.Nil(t, snap.Editing)
	assert.Equal(t, "Alien", snap.Participants[0].Movie)

	write(t, conn, ClientMessage{Type: "edit", ID: ann.ID, Field: "name", Value: "Anna"})
	snap = nextState(t, conn)
	assert.Equal(t, "Anna", snap.Participants[0].Name)

	write(t, conn, ClientMessage{Type: "commit_edit"})
	assert.Equal(t, "rejected", nextNotice(t, conn).Kind)

	// Removing an unknown participant is silent; removing a real one is broadcast.
	write(t, conn, ClientMessage{Type: "remove", ID: "nobody"})
	write(t, conn, ClientMessage{Type: "remove", ID: ann.ID})
	snap = nextState(t, conn)
	require.Len(t, snap.Participants, 1)
	assert.Equal(t, "Ben", snap.Participants[0].Name)
}

func TestClientsShareSession(t *testing.T) {
	ts := newTestServer(t)

	a := ts.dial(t, "shared01")
	nextState(t, a)
	b := ts.dial(t, "shared01")
	nextState(t, b)
	other := ts.dial(t, "shared02")
	nextState(t, other)

	write(t, a, ClientMessage{Type: "add", Name: "Ann", Movie: "Arrival"})
	assert.Len(t, nextState(t, a).Participants, 1)
	assert.Len(t, nextState(t, b).Participants, 1)

	// Notices only go to the client that caused them.
	write(t, b, ClientMessage{Type: "add", Name: "Ann", Movie: "Heat"})
	assert.Equal(t, "duplicate_name", nextNotice(t, b).Kind)

	write(t, other, ClientMessage{Type: "add", Name: "Ann", Movie: "Heat"})
	assert.Len(t, nextState(t, other).Participants, 1)

	write(t, a, ClientMessage{Type: "add", Name: "Ben", Movie: "Big"})
	assert.Len(t, nextState(t, a).Participants, 2)
	assert.Len(t, nextState(t, b).Participants, 2)

	assert.Equal(t, 2, ts.gm.count())
}

func TestReapIdleSessions(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "reapme01")
	nextState(t, conn)
	require.Equal(t, 1, ts.gm.count())

	ts.gm.reap(ts.cfg, time.Now().Add(-time.Hour))
	assert.Equal(t, 1, ts.gm.count())

	ts.gm.reap(ts.cfg, time.Now().Add(time.Hour))
	assert.Equal(t, 0, ts.gm.count())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg serverMessage
	assert.Error(t, conn.ReadJSON(&msg))
}

func TestNoticeFor(t *testing.T) {
	tests := []struct {
		err     error
		field   string
		kind    string
		title   string
		message string
		focus   string
	}{
		{games.ErrEmptyField, "", "empty_field", "Error", "Please fill in both name and movie suggestion", "name"},
		{games.ErrEmptyField, "name", "empty_field", "Error", "Name cannot be empty", "name"},
		{games.ErrDuplicateName, "", "duplicate_name", "Duplicate Name", "This name is already taken. Please choose a different name.", "name"},
		{games.ErrDuplicateMovie, "", "duplicate_movie", "Duplicate Movie", "This movie has already been suggested. Please choose a different movie.", "movie"},
		{games.ErrDuplicateEntry, "name", "duplicate_entry", "Duplicate Entry", "This name is already taken", "name"},
		{games.ErrSelfVote, "", "self_vote", "Invalid Vote", "You cannot vote for your own movie!", ""},
		{fmt.Errorf("wrapped: %w", games.ErrSelfVote), "", "self_vote", "Invalid Vote", "You cannot vote for your own movie!", ""},
		{games.ErrOutOfTurn, "", "rejected", "Error", games.ErrOutOfTurn.Error(), ""},
		{errors.New("boom"), "", "rejected", "Error", "boom", ""},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			n := noticeFor(tt.err, tt.field)
			assert.Equal(t, "notice", n.Type)
			assert.Equal(t, tt.kind, n.Kind)
			assert.Equal(t, tt.title, n.Title)
			assert.Equal(t, tt.message, n.Message)
			assert.Equal(t, tt.focus, n.Field)
		})
	}
}
