package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"datingluck-server/internal/apperr"
	"datingluck-server/internal/config"
	"datingluck-server/internal/models"
	"datingluck-server/internal/services"
	"datingluck-server/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
	RegisterValidations()
}

func testConfig() *config.Config {
	return &config.Config{
		RequestTimeout:    5 * time.Second,
		MaxFileSize:       5 * 1024 * 1024,
		MaxPhotosPerBatch: 6,
		AllowedImageExts:  []string{".jpeg", ".jpg", ".png", ".gif"},
		PairLockTTL:       5 * time.Second,
		MatchCacheTTL:     time.Hour,
	}
}

// memUsers backs UserRegistry, ProfileStore and the services' user store
// with one map so handler tests exercise the real services.
type memUsers struct {
	mu      sync.Mutex
	byID    map[primitive.ObjectID]*models.User
	byEmail map[string]primitive.ObjectID
	feed    []models.User
}

func newMemUsers() *memUsers {
	return &memUsers{
		byID:    make(map[primitive.ObjectID]*models.User),
		byEmail: make(map[string]primitive.ObjectID),
	}
}

func (m *memUsers) add(user *models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user.ID
	return user
}

func (m *memUsers) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[user.Email]; ok {
		return apperr.New(apperr.Conflict, "User already exists with this email")
	}
	user.ID = primitive.NewObjectID()
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	return m.byID[id], nil
}

func (m *memUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	return user, nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id primitive.ObjectID, bio, gender *string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	if bio != nil {
		user.Bio = *bio
	}
	if gender != nil {
		user.Gender = *gender
	}
	return user, nil
}

func (m *memUsers) AddPhotos(_ context.Context, id primitive.ObjectID, urls []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	user.Photos = append(user.Photos, urls...)
	return user.Photos, nil
}

func (m *memUsers) RemovePhoto(_ context.Context, id primitive.ObjectID, url string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	kept := []string{}
	for _, photo := range user.Photos {
		if photo != url {
			kept = append(kept, photo)
		}
	}
	user.Photos = kept
	return user.Photos, nil
}

func (m *memUsers) AddLikeEdge(_ context.Context, likerID, targetID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	liker, ok := m.byID[likerID]
	if !ok {
		return apperr.New(apperr.NotFound, "User not found")
	}
	target, ok := m.byID[targetID]
	if !ok {
		return apperr.New(apperr.NotFound, "User not found")
	}
	liker.LikesSent = appendUnique(liker.LikesSent, targetID)
	target.LikesReceived = appendUnique(target.LikesReceived, likerID)
	return nil
}

func (m *memUsers) AddMatchEdge(_ context.Context, a, b primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ua, ok := m.byID[a]; ok {
		ua.Matches = appendUnique(ua.Matches, b)
	}
	if ub, ok := m.byID[b]; ok {
		ub.Matches = appendUnique(ub.Matches, a)
	}
	return nil
}

func (m *memUsers) SeverEdges(_ context.Context, a, b primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ua, ok := m.byID[a]; ok {
		ua.Matches = withoutID(ua.Matches, b)
		ua.LikesSent = withoutID(ua.LikesSent, b)
		ua.LikesReceived = withoutID(ua.LikesReceived, b)
	}
	if ub, ok := m.byID[b]; ok {
		ub.Matches = withoutID(ub.Matches, a)
		ub.LikesSent = withoutID(ub.LikesSent, a)
		ub.LikesReceived = withoutID(ub.LikesReceived, a)
	}
	return nil
}

func (m *memUsers) Feed(_ context.Context, _ store.FeedParams, exclude []primitive.ObjectID) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	excluded := make(map[primitive.ObjectID]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}
	out := []models.User{}
	for _, candidate := range m.feed {
		if !excluded[candidate.ID] {
			out = append(out, candidate)
		}
	}
	return out, nil
}

type memMatches struct {
	mu      sync.Mutex
	byID    map[primitive.ObjectID]*models.Match
	byPair  map[string]primitive.ObjectID
}

func newMemMatches() *memMatches {
	return &memMatches{
		byID:   make(map[primitive.ObjectID]*models.Match),
		byPair: make(map[string]primitive.ObjectID),
	}
}

func (m *memMatches) Create(_ context.Context, a, b primitive.ObjectID) (*models.Match, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := models.PairKey(a, b)
	if id, ok := m.byPair[key]; ok {
		return m.byID[id], false, nil
	}
	match := &models.Match{
		ID:        primitive.NewObjectID(),
		Users:     []primitive.ObjectID{a, b},
		PairKey:   key,
		Active:    true,
		CreatedAt: time.Now(),
	}
	m.byID[match.ID] = match
	m.byPair[key] = match.ID
	return match, true, nil
}

func (m *memMatches) FindByID(_ context.Context, id primitive.ObjectID) (*models.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	match, ok := m.byID[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "Match not found")
	}
	return match, nil
}

func (m *memMatches) ListForUser(_ context.Context, userID primitive.ObjectID) ([]models.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Match
	for _, match := range m.byID {
		if match.HasParticipant(userID) {
			out = append(out, *match)
		}
	}
	return out, nil
}

func (m *memMatches) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	match, ok := m.byID[id]
	if !ok {
		return apperr.New(apperr.NotFound, "Match not found")
	}
	delete(m.byPair, match.PairKey)
	delete(m.byID, id)
	return nil
}

func (m *memMatches) DeleteByPair(_ context.Context, a, b primitive.ObjectID) (*models.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byPair[models.PairKey(a, b)]
	if !ok {
		return nil, nil
	}
	match := m.byID[id]
	delete(m.byPair, match.PairKey)
	delete(m.byID, id)
	return match, nil
}

type memMessages struct {
	mu   sync.Mutex
	list []models.Message
}

func (m *memMessages) Insert(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = primitive.NewObjectID()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	m.list = append(m.list, *msg)
	return nil
}

func (m *memMessages) ListByMatch(_ context.Context, matchID primitive.ObjectID) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Message{}
	for _, msg := range m.list {
		if msg.MatchID == matchID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memMessages) DeleteByMatch(_ context.Context, matchID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []models.Message
	var deleted int64
	for _, msg := range m.list {
		if msg.MatchID == matchID {
			deleted++
			continue
		}
		kept = append(kept, msg)
	}
	m.list = kept
	return deleted, nil
}

type memReports struct {
	mu   sync.Mutex
	list []models.Report
}

func (m *memReports) Insert(_ context.Context, report *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	report.ID = primitive.NewObjectID()
	report.CreatedAt = time.Now()
	m.list = append(m.list, *report)
	return nil
}

type memCache struct {
	mu     sync.Mutex
	values map[string]bool
	hashes map[string]map[string]string
}

func newMemCache() *memCache {
	return &memCache{values: make(map[string]bool), hashes: make(map[string]map[string]string)}
}

func (c *memCache) SetNX(_ context.Context, key string, _ interface{}, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values[key] {
		return false, nil
	}
	c.values[key] = true
	return true, nil
}

func (c *memCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.values, key)
		delete(c.hashes, key)
	}
	return nil
}

func (c *memCache) HSet(_ context.Context, key string, values ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	hash := c.hashes[key]
	if hash == nil {
		hash = make(map[string]string)
		c.hashes[key] = hash
	}
	for i := 0; i+1 < len(values); i += 2 {
		hash[values[i].(string)] = values[i+1].(string)
	}
	return nil
}

func (c *memCache) HGetAll(_ context.Context, key string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string)
	for k, v := range c.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (c *memCache) Expire(_ context.Context, _ string, _ time.Duration) error { return nil }

type memBroadcaster struct {
	mu         sync.Mutex
	broadcasts map[string][][]byte
	closed     []string
}

func newMemBroadcaster() *memBroadcaster {
	return &memBroadcaster{broadcasts: make(map[string][][]byte)}
}

func (b *memBroadcaster) Broadcast(matchID string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broadcasts[matchID] = append(b.broadcasts[matchID], payload)
}

func (b *memBroadcaster) CloseRoom(matchID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = append(b.closed, matchID)
}

type memBlobs struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
}

func (b *memBlobs) Upload(_ context.Context, file io.Reader, _ int64, objectName, _ string) (string, error) {
	if _, err := io.Copy(io.Discard, file); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	url := "http://blob.test/" + objectName
	b.uploaded = append(b.uploaded, url)
	return url, nil
}

func (b *memBlobs) Delete(_ context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, url)
	return nil
}

// testServer is the full route table over in-memory stores.
type testServer struct {
	router   *gin.Engine
	users    *memUsers
	matches  *memMatches
	messages *memMessages
	reports  *memReports
	blobs    *memBlobs
	bc       *memBroadcaster
}

func newTestServer() *testServer {
	cfg := testConfig()
	users := newMemUsers()
	matches := newMemMatches()
	messages := &memMessages{}
	reports := &memReports{}
	cache := newMemCache()
	bc := newMemBroadcaster()
	blobs := &memBlobs{}

	interest := services.NewInterestService(users, matches, cache, cfg.PairLockTTL, cfg.MatchCacheTTL)
	feed := services.NewFeedService(users)
	chat := services.NewChatService(users, matches, messages, cache, bc, cfg.MatchCacheTTL)
	teardown := services.NewTeardownService(users, matches, messages, reports, cache, bc)

	authHandler := NewAuthHandler(users, cfg)
	userHandler := NewUserHandler(users, feed, blobs, cfg)
	matchHandler := NewMatchHandler(interest, teardown, cfg)
	messageHandler := NewMessageHandler(chat, cfg)

	router := gin.New()
	router.POST("/register", authHandler.Register)
	router.POST("/upload-photos", userHandler.UploadPhotos)
	router.POST("/delete-photo", userHandler.DeletePhoto)
	router.PUT("/update-profile", userHandler.UpdateProfile)
	router.GET("/feed", userHandler.Feed)
	router.GET("/users/:id", userHandler.GetUser)
	router.POST("/like", matchHandler.Like)
	router.GET("/my-matches/:userId", matchHandler.MyMatches)
	router.POST("/unmatch", matchHandler.Unmatch)
	router.POST("/report", matchHandler.Report)
	router.POST("/send-message", messageHandler.SendMessage)
	router.GET("/conversation/:matchId", messageHandler.Conversation)

	return &testServer{
		router:   router,
		users:    users,
		matches:  matches,
		messages: messages,
		reports:  reports,
		blobs:    blobs,
		bc:       bc,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (s *testServer) seedUser(name string) *models.User {
	return s.users.add(&models.User{
		Email:    name + "@x.com",
		Password: "$2a$10$hash",
		Name:     name,
		Age:      27,
		Gender:   models.GenderFemale,
		Photos:   []string{},
		Location: models.NewGeoPoint(10, 10),
	})
}

func (s *testServer) seedMatch(t *testing.T, a, b *models.User) primitive.ObjectID {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/like", gin.H{"myId": a.ID.Hex(), "targetId": b.ID.Hex()})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, "/like", gin.H{"myId": b.ID.Hex(), "targetId": a.ID.Hex()})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	require.Equal(t, true, body["match"])
	matchID, err := primitive.ObjectIDFromHex(body["matchId"].(string))
	require.NoError(t, err)
	return matchID
}

func appendUnique(set []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	for _, existing := range set {
		if existing == id {
			return set
		}
	}
	return append(set, id)
}

func withoutID(set []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := set[:0]
	for _, existing := range set {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
