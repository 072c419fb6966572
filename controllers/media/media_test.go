package media

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"repair-ops/cache"
	"repair-ops/constants"
	"repair-ops/database"
	"repair-ops/httpServices/videostore"
	"repair-ops/logger"
	mediaModel "repair-ops/models/media"
	"repair-ops/models/user"
	"repair-ops/types"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// fakeVideoStore mimics the store's resumable endpoints and counts the
// chunk PATCHes that actually reach it.
type fakeVideoStore struct {
	server      *httptest.Server
	chunkCalls  int
	storeOffset int64
}

func newFakeVideoStore(t *testing.T) *fakeVideoStore {
	t.Helper()
	fs := &fakeVideoStore{}
	fs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/videos/uploads":
			w.Header().Set("Location", "/v1/videos/uploads/up_test")
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPatch && r.URL.Path == "/v1/videos/uploads/up_test":
			fs.chunkCalls++
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			offset, err := strconv.ParseInt(r.Header.Get("Upload-Offset"), 10, 64)
			require.NoError(t, err)
			fs.storeOffset = offset + int64(len(body))
			w.Header().Set("Upload-Offset", strconv.FormatInt(fs.storeOffset, 10))
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPost && r.URL.Path == "/v1/videos/uploads/up_test/complete":
			json.NewEncoder(w).Encode(videostore.UploadResult{
				VideoID:     "vid_test",
				StoragePath: "videos/vid_test.mp4",
				DurationSec: 12.5,
				SizeBytes:   fs.storeOffset,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(fs.server.Close)
	return fs
}

type fixture struct {
	app   *fiber.App
	db    *gorm.DB
	store *fakeVideoStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	database.DB = db

	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	worker := &user.User{
		Uuid:         uuid.NewString(),
		Username:     "worker-" + uuid.NewString()[:8],
		PasswordHash: "x",
		LegalName:    "Test Worker",
		Phone:        uuid.NewString()[:12],
		Role:         constants.RoleWorker,
	}
	require.NoError(t, db.Create(worker).Error)

	store := newFakeVideoStore(t)
	client := videostore.NewClient(store.server.URL, "vs_test_key")
	controller := NewMediaController(db, logger.NewAsyncLogger(db), client, nil, nil)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"uuid":     worker.Uuid,
			"username": worker.Username,
			"role":     worker.Role,
		})
		return c.Next()
	})
	app.Post("/api/media/uploads", controller.CreateResumable)
	app.Patch("/api/media/uploads/:id", controller.UploadChunk)
	app.Post("/api/media/uploads/:id/complete", controller.CompleteResumable)

	return &fixture{app: app, db: db, store: store}
}

func (f *fixture) createSession(t *testing.T, totalSize int64) string {
	t.Helper()
	body, err := json.Marshal(fiber.Map{
		"waybill_no": "WB-2001",
		"type":       string(mediaModel.TypeInbound),
		"file_name":  "inbound.mp4",
		"total_size": totalSize,
	})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/media/uploads", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	api := decodeAPI(t, resp)
	data := api.Data.(map[string]interface{})
	return data["upload_id"].(string)
}

func (f *fixture) patchChunk(t *testing.T, uploadID string, offset int64, chunk []byte) (*http.Response, types.ApiResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPatch, "/api/media/uploads/"+uploadID, bytes.NewReader(chunk))
	req.Header.Set("Content-Type", "application/offset+octet-stream")
	req.Header.Set("Upload-Offset", strconv.FormatInt(offset, 10))
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp, decodeAPI(t, resp)
}

func decodeAPI(t *testing.T, resp *http.Response) types.ApiResponse {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var api types.ApiResponse
	require.NoError(t, json.Unmarshal(raw, &api))
	return api
}

func TestResumableUploadCompletes(t *testing.T) {
	f := newFixture(t)
	uploadID := f.createSession(t, 8)

	resp, api := f.patchChunk(t, uploadID, 0, []byte("abcd"))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "4", resp.Header.Get("Upload-Offset"))
	assert.True(t, api.Success)

	resp, _ = f.patchChunk(t, uploadID, 4, []byte("efgh"))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "8", resp.Header.Get("Upload-Offset"))

	req := httptest.NewRequest(http.MethodPost, "/api/media/uploads/"+uploadID+"/complete", nil)
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var row mediaModel.Media
	require.NoError(t, f.db.Where("waybill_no = ?", "WB-2001").First(&row).Error)
	assert.Equal(t, mediaModel.TypeInbound, row.Type)
	assert.Equal(t, "videos/vid_test.mp4", row.StoragePath)
	assert.Equal(t, int64(8), row.SizeBytes)
}

func TestChunkOffsetConflictTellsExpectedOffset(t *testing.T) {
	f := newFixture(t)
	uploadID := f.createSession(t, 8)

	resp, _ := f.patchChunk(t, uploadID, 0, []byte("abcd"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 1, f.store.chunkCalls)

	// Replaying the first chunk disagrees with the session state. The
	// answer carries the expected offset and nothing reaches the store.
	resp, api := f.patchChunk(t, uploadID, 0, []byte("abcd"))
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "4", resp.Header.Get("Upload-Offset"))
	assert.False(t, api.Success)
	data := api.Data.(map[string]interface{})
	assert.Equal(t, float64(4), data["offset"])
	assert.Equal(t, 1, f.store.chunkCalls)

	// Resuming at the advertised offset goes through.
	resp, _ = f.patchChunk(t, uploadID, 4, []byte("efgh"))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, f.store.chunkCalls)
}

func TestChunkWithoutOffsetHeaderRejected(t *testing.T) {
	f := newFixture(t)
	uploadID := f.createSession(t, 8)

	req := httptest.NewRequest(http.MethodPatch, "/api/media/uploads/"+uploadID, bytes.NewReader([]byte("abcd")))
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, f.store.chunkCalls)
}

func TestChunkForExpiredSessionNotFound(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.patchChunk(t, "up_gone", 0, []byte("abcd"))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
