// Package apitest provides an in-memory hack-or-snooze API for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type story struct {
	StoryID   string `json:"storyId"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	URL       string `json:"url"`
	Username  string `json:"username"`
	CreatedAt string `json:"createdAt"`
}

type user struct {
	username  string
	password  string
	name      string
	createdAt string
	favorites []string
}

// Server is a fake story API backed by memory. It is safe for concurrent use.
type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	users    map[string]*user
	tokens   map[string]string // token -> username
	stories  []*story          // newest first
	failures map[string]int    // "METHOD pattern" -> status
	calls    map[string]int
}

// New starts a fake API server. Call Close when done.
func New() *Server {
	s := &Server{
		users:    make(map[string]*user),
		tokens:   make(map[string]string),
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}

	r := chi.NewRouter()
	s.route(r, http.MethodGet, "/stories", s.listStories)
	s.route(r, http.MethodPost, "/stories", s.createStory)
	s.route(r, http.MethodDelete, "/stories/{storyID}", s.deleteStory)
	s.route(r, http.MethodPost, "/signup", s.signup)
	s.route(r, http.MethodPost, "/login", s.login)
	s.route(r, http.MethodGet, "/users/{username}", s.getUser)
	s.route(r, http.MethodPost, "/users/{username}/favorites/{storyID}", s.addFavorite)
	s.route(r, http.MethodDelete, "/users/{username}/favorites/{storyID}", s.removeFavorite)

	s.srv = httptest.NewServer(r)
	return s
}

// URL returns the base URL of the server.
func (s *Server) URL() string {
	return s.srv.URL
}

// Close shuts the server down.
func (s *Server) Close() {
	s.srv.Close()
}

// AddUser registers a user directly and returns a valid token for it.
func (s *Server) AddUser(username, password, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = &user{
		username:  username,
		password:  password,
		name:      name,
		createdAt: now(),
	}
	return s.issueToken(username)
}

// AddStory inserts a story directly and returns its ID.
func (s *Server) AddStory(username, title, author, url string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := &story{
		StoryID:   uuid.NewString(),
		Title:     title,
		Author:    author,
		URL:       url,
		Username:  username,
		CreatedAt: now(),
	}
	s.stories = append([]*story{st}, s.stories...)
	return st.StoryID
}

// RevokeToken makes a token invalid, as if it had expired.
func (s *Server) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// Fail makes every request to the route fail with status until cleared
// with Fail(method, pattern, 0).
func (s *Server) Fail(method, pattern string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, method+" "+pattern)
		return
	}
	s.failures[method+" "+pattern] = status
}

// Calls returns how many requests reached the route.
func (s *Server) Calls(method, pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+pattern]
}

// StoryIDs returns the IDs of all stored stories, newest first.
func (s *Server) StoryIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.stories))
	for _, st := range s.stories {
		ids = append(ids, st.StoryID)
	}
	return ids
}

// Favorites returns the favorite story IDs of a user.
func (s *Server) Favorites(username string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nil
	}
	return append([]string(nil), u.favorites...)
}

func (s *Server) route(r chi.Router, method, pattern string, h http.HandlerFunc) {
	key := method + " " + pattern
	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		s.calls[key]++
		status, failing := s.failures[key]
		s.mu.Unlock()

		if failing {
			writeError(w, status, "Injected failure")
			return
		}
		h(w, req)
	}))
}

func (s *Server) listStories(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*story{}
	for i, st := range s.stories {
		if i < skip {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, st)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"stories": out})
}

func (s *Server) createStory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
		Story story  `json:"story"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	username, ok := s.tokens[body.Token]
	if !ok {
		writeError(w, http.StatusUnauthorized, "A valid token is required")
		return
	}
	if body.Story.Title == "" || body.Story.Author == "" || body.Story.URL == "" {
		writeError(w, http.StatusBadRequest, "Story requires title, author and url")
		return
	}

	st := &story{
		StoryID:   uuid.NewString(),
		Title:     body.Story.Title,
		Author:    body.Story.Author,
		URL:       body.Story.URL,
		Username:  username,
		CreatedAt: now(),
	}
	s.stories = append([]*story{st}, s.stories...)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"story": st})
}

func (s *Server) deleteStory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "storyID")
	token, ok := decodeToken(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	username, ok := s.tokens[token]
	if !ok {
		writeError(w, http.StatusUnauthorized, "A valid token is required")
		return
	}
	idx := -1
	for i, st := range s.stories {
		if st.StoryID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		writeError(w, http.StatusNotFound, "No story with that ID")
		return
	}
	st := s.stories[idx]
	if st.Username != username {
		writeError(w, http.StatusForbidden, "You can only delete your own stories")
		return
	}

	s.stories = append(s.stories[:idx], s.stories[idx+1:]...)
	for _, u := range s.users {
		u.favorites = without(u.favorites, id)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "deleted", "story": st})
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		User struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Name     string `json:"name"`
		} `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	if body.User.Username == "" || body.User.Password == "" || body.User.Name == "" {
		writeError(w, http.StatusBadRequest, "User requires username, password and name")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.users[body.User.Username]; taken {
		writeError(w, http.StatusConflict, "Username is already taken")
		return
	}
	u := &user{
		username:  body.User.Username,
		password:  body.User.Password,
		name:      body.User.Name,
		createdAt: now(),
	}
	s.users[u.username] = u
	token := s.issueToken(u.username)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"user": s.profile(u), "token": token})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		User struct {
			Username string `json:"username"`
			Password string `json:"password"`
		} `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[body.User.Username]
	if !ok {
		writeError(w, http.StatusNotFound, "No such user")
		return
	}
	if u.password != body.User.Password {
		writeError(w, http.StatusUnauthorized, "Invalid password")
		return
	}
	token := s.issueToken(u.username)
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": s.profile(u), "token": token})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	token := r.URL.Query().Get("token")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[token]; !ok {
		writeError(w, http.StatusUnauthorized, "A valid token is required")
		return
	}
	u, ok := s.users[username]
	if !ok {
		writeError(w, http.StatusNotFound, "No such user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": s.profile(u)})
}

func (s *Server) addFavorite(w http.ResponseWriter, r *http.Request) {
	s.changeFavorite(w, r, true)
}

func (s *Server) removeFavorite(w http.ResponseWriter, r *http.Request) {
	s.changeFavorite(w, r, false)
}

func (s *Server) changeFavorite(w http.ResponseWriter, r *http.Request, add bool) {
	username := chi.URLParam(r, "username")
	id := chi.URLParam(r, "storyID")
	token, ok := decodeToken(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tokens[token] != username {
		writeError(w, http.StatusUnauthorized, "A valid token for this user is required")
		return
	}
	if s.findStory(id) == nil {
		writeError(w, http.StatusNotFound, "No story with that ID")
		return
	}
	u := s.users[username]
	u.favorites = without(u.favorites, id)
	if add {
		u.favorites = append(u.favorites, id)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "ok", "user": s.profile(u)})
}

// issueToken must be called with mu held.
func (s *Server) issueToken(username string) string {
	token := uuid.NewString()
	s.tokens[token] = username
	return token
}

// findStory must be called with mu held.
func (s *Server) findStory(id string) *story {
	for _, st := range s.stories {
		if st.StoryID == id {
			return st
		}
	}
	return nil
}

// profile must be called with mu held.
func (s *Server) profile(u *user) map[string]interface{} {
	favorites := []*story{}
	for _, id := range u.favorites {
		if st := s.findStory(id); st != nil {
			favorites = append(favorites, st)
		}
	}
	own := []*story{}
	for _, st := range s.stories {
		if st.Username == u.username {
			own = append(own, st)
		}
	}
	return map[string]interface{}{
		"username":  u.username,
		"name":      u.name,
		"createdAt": u.createdAt,
		"favorites": favorites,
		"stories":   own,
	}
}

func decodeToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return "", false
	}
	return body.Token, true
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"status":  status,
			"title":   http.StatusText(status),
			"message": message,
		},
	})
}
