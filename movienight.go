// Movie night
//
// Everyone in the room registers a name and a movie suggestion. Once at least
// three people are in, they vote one at a time, in a shuffled order, for any
// movie but their own. Most votes wins; ties go to tie-breaker rounds among the
// tied movies until a single winner remains.
//
// Features:
// - WebSockets per session ID: /path/:gameid and /path/:gameid/ws
// - One session per ID, held in memory and owned by its hub goroutine
// - Roster rows can be added, edited in place and removed at any time
// - Any roster change reshuffles the voting order and restarts the round
// - Rejected actions are answered with a notice sent only to the offending client
// - Sessions auto-reaped after configurable idle timeout
// - Random 8-char session IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the current session, backed by go-qrcode

package main

import (
	"crypto/rand"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/movienight/games"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from clients
type ClientMessage struct {
	Type       string `json:"type"`                   // see readPump for the full list
	ID         string `json:"id,omitempty"`           // edit / remove / begin_edit
	Name       string `json:"name,omitempty"`         // add
	Movie      string `json:"movie,omitempty"`        // add
	Field      string `json:"field,omitempty"`        // edit / begin_edit
	Value      string `json:"value,omitempty"`        // edit / update_draft
	VoterID    string `json:"voter_id,omitempty"`     // vote
	VotedForID string `json:"voted_for_id,omitempty"` // vote
}

// StateMessage carries the whole session; sent on connect and after every change.
type StateMessage struct {
	Type    string         `json:"type"` // "state"
	Session games.Snapshot `json:"session"`
}

// NoticeMessage is sent to a single client when one of its actions is rejected.
type NoticeMessage struct {
	Type    string `json:"type"`            // "notice"
	Kind    string `json:"kind"`            // "empty_field", "duplicate_name", ...
	Title   string `json:"title"`           // user-facing heading
	Message string `json:"message"`         // user-facing text
	Field   string `json:"field,omitempty"` // "name" or "movie", for focusing an input
}

type Client struct {
	conn *websocket.Conn
	send chan any
}

type rosterRequest struct {
	client *Client
	msg    ClientMessage
}

type voteRequest struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	id      string
	clients map[*Client]bool
	session *games.Session

	register chan *Client
	unreg    chan *Client
	rosters  chan rosterRequest
	votes    chan voteRequest
	quit     chan struct{}
	stopped  sync.Once

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time
}

func newHub(cfg *Config, gameID string) *Hub {
	now := time.Now()
	return &Hub{
		id:         gameID,
		clients:    make(map[*Client]bool),
		session:    games.NewSession(cfg.gameOptions()),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		rosters:    make(chan rosterRequest),
		votes:      make(chan voteRequest),
		quit:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
	}
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.clients[c] = true
			h.sendLocked(c, h.stateLocked())
			h.mu.Unlock()

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case req := <-h.rosters:
			h.handleRoster(cfg, req)

		case req := <-h.votes:
			h.handleVote(cfg, req)

		case <-h.quit:
			return
		}
	}
}

func (h *Hub) stateLocked() StateMessage {
	return StateMessage{
		Type:    "state",
		Session: h.session.Snapshot(),
	}
}

// sendLocked queues msg for one client, dropping the client if it has fallen behind.
func (h *Hub) sendLocked(c *Client, msg any) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcastStateLocked() {
	msg := h.stateLocked()

	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

// handleRoster processes roster changes and in-place edits.
func (h *Hub) handleRoster(cfg *Config, req rosterRequest) {
	msg := req.msg

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	s := h.session

	var err error
	field := msg.Field

	switch msg.Type {
	case "add":
		var p games.Participant
		p, err = s.AddParticipant(msg.Name, msg.Movie)
		if err == nil {
			logf(cfg, "GAMES: %q suggested %q in %s", p.Name, p.Movie, h.id)
		}

	case "edit":
		err = s.EditParticipant(msg.ID, games.Field(msg.Field), msg.Value)

	case "remove":
		p, _ := s.Roster().Get(msg.ID)
		if !s.RemoveParticipant(msg.ID) {
			return
		}
		logf(cfg, "GAMES: Removed %q from %s", p.Name, h.id)

	case "begin_edit":
		err = s.BeginEdit(msg.ID, games.Field(msg.Field))

	case "update_draft":
		// Drafts are private to the editor until committed.
		if err = s.UpdateDraft(msg.Value); err == nil {
			return
		}

	case "commit_edit":
		field = string(s.Editing().Field)
		err = s.CommitEdit()

	case "cancel_edit":
		s.CancelEdit()

	default:
		return
	}

	if err != nil {
		h.sendLocked(req.client, noticeFor(err, field))
		return
	}

	h.broadcastStateLocked()
}

// handleVote processes votes, tie-breaks and full resets.
func (h *Hub) handleVote(cfg *Config, req voteRequest) {
	msg := req.msg

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	s := h.session

	var err error

	switch msg.Type {
	case "vote":
		err = s.CastVote(msg.VoterID, msg.VotedForID)
		if err != nil {
			break
		}

		voter, _ := s.Roster().Get(msg.VoterID)
		target, _ := s.Roster().Get(msg.VotedForID)
		logf(cfg, "GAMES: %q voted for %q in %s", voter.Name, target.Movie, h.id)

		outcome, rerr := s.Engine().Resolve()
		switch {
		case rerr != nil:
		case outcome.Winner != nil:
			logf(cfg, "GAMES: %q won round %d in %s", outcome.Winner.Movie, s.Engine().Round(), h.id)
		default:
			logf(cfg, "GAMES: %d movies tied in round %d in %s", len(outcome.Tied), s.Engine().Round(), h.id)
		}

	case "tie_break":
		err = s.AdvanceTieBreak()
		if err == nil {
			logf(cfg, "GAMES: Started tie-breaker round %d in %s", s.Engine().Round(), h.id)
		}

	case "reset":
		s.Reset()
		logf(cfg, "GAMES: Reset %s", h.id)

	default:
		return
	}

	if err != nil {
		h.sendLocked(req.client, noticeFor(err, ""))
		return
	}

	h.broadcastStateLocked()
}

// noticeFor turns a rejected action into something fit to show the user.
// field names the input involved, if known.
func noticeFor(err error, field string) NoticeMessage {
	n := NoticeMessage{
		Type:    "notice",
		Kind:    "rejected",
		Title:   "Error",
		Message: err.Error(),
		Field:   field,
	}

	label := "value"
	switch games.Field(field) {
	case games.FieldName:
		label = "name"
	case games.FieldMovie:
		label = "movie"
	}

	switch {
	case errors.Is(err, games.ErrEmptyField):
		n.Kind = "empty_field"
		if field == "" {
			n.Message = "Please fill in both name and movie suggestion"
			n.Field = string(games.FieldName)
		} else {
			n.Message = strings.ToUpper(label[:1]) + label[1:] + " cannot be empty"
		}
	case errors.Is(err, games.ErrDuplicateName):
		n.Kind = "duplicate_name"
		n.Title = "Duplicate Name"
		n.Message = "This name is already taken. Please choose a different name."
		n.Field = string(games.FieldName)
	case errors.Is(err, games.ErrDuplicateMovie):
		n.Kind = "duplicate_movie"
		n.Title = "Duplicate Movie"
		n.Message = "This movie has already been suggested. Please choose a different movie."
		n.Field = string(games.FieldMovie)
	case errors.Is(err, games.ErrDuplicateEntry):
		n.Kind = "duplicate_entry"
		n.Title = "Duplicate Entry"
		n.Message = fmt.Sprintf("This %s is already taken", label)
	case errors.Is(err, games.ErrSelfVote):
		n.Kind = "self_vote"
		n.Title = "Invalid Vote"
		n.Message = "You cannot vote for your own movie!"
	}

	return n
}

// closeAll stops the hub and disconnects all of its clients (used by reaper).
func (h *Hub) closeAll() {
	h.stopped.Do(func() {
		close(h.quit)
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GameManager holds a set of hubs keyed by session ID, so each $path/$gameid
// is its own isolated movie night.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
	done        chan struct{}
	closed      sync.Once
}

func newGameManager(cfg *Config, idleTimeout time.Duration) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
		done:        make(chan struct{}),
	}
	if idleTimeout > 0 {
		go gm.reaperLoop(cfg)
	}
	return gm
}

func (gm *GameManager) getHub(cfg *Config, gameID string) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub
	}

	hub := newHub(cfg, gameID)
	gm.hubs[gameID] = hub
	go hub.run(cfg)
	return hub
}

func (gm *GameManager) count() int {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	return len(gm.hubs)
}

// newGameID generates a crypto-random session ID and ensures it doesn't
// collide with existing sessions.
func (gm *GameManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		gm.mu.Lock()
		_, exists := gm.hubs[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reap removes hubs that have been idle since before cutoff.
func (gm *GameManager) reap(cfg *Config, cutoff time.Time) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		hub.mu.RLock()
		last := hub.lastActive
		hub.mu.RUnlock()

		if last.Before(cutoff) {
			delete(gm.hubs, id)
			logf(cfg, "GAMES: Ended idle session %s", id)
			go hub.closeAll()
		}
	}
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop(cfg *Config) {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			gm.reap(cfg, time.Now().Add(-gm.idleTimeout))
		case <-gm.done:
			return
		}
	}
}

// Close stops the reaper and ends every session.
func (gm *GameManager) Close() {
	gm.closed.Do(func() {
		close(gm.done)
	})

	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		delete(gm.hubs, id)
		hub.closeAll()
	}
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		hub := gm.getHub(cfg, gameID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 16),
		}

		select {
		case hub.register <- client:
		case <-hub.quit:
			_ = conn.Close()
			return
		}

		logf(cfg, "SERVE: Connected %s to session %s", realIP(r), gameID)

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.quit:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "add", "edit", "remove", "begin_edit", "update_draft", "commit_edit", "cancel_edit":
			select {
			case h.rosters <- rosterRequest{
				client: c,
				msg:    msg,
			}:
			case <-h.quit:
				return
			}
		case "vote", "tie_break", "reset":
			select {
			case h.votes <- voteRequest{
				client: c,
				msg:    msg,
			}:
			case <-h.quit:
				return
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current session URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID := ps.ByName("gameid")
	if gameID == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:gameid/qr; strip trailing "/qr" to get the session URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

//go:embed movienight/index.html
var indexHTML []byte

func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(indexHTML)
	}
}

// redirectNewGame handles GET /path by generating a new random session ID
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created session %s/%s", path, gameID)
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerMovieNight sets up routes so that:
//   - $path                  → redirects to new random session (8-char ID)
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → WebSocket for that session
//   - $path/:gameid/qr       → PNG QR code for that session URL
func registerMovieNight(cfg *Config, path string, mux *httprouter.Router) *GameManager {
	gm := newGameManager(cfg, cfg.sessionTimeout)

	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))
	mux.GET(cfg.prefix+path+"/:gameid", getIndexHandler(cfg))
	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))
	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler)

	return gm
}
