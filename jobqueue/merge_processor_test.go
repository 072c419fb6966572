package jobqueue

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"repair-ops/database"
	"repair-ops/httpServices/mergeworker"
	"repair-ops/httpServices/videostore"
	mediaModel "repair-ops/models/media"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func createMedia(t *testing.T, db *gorm.DB, waybillNo string, mediaType mediaModel.MediaType) *mediaModel.Media {
	t.Helper()
	m := mediaModel.Media{
		WaybillNo:   waybillNo,
		Type:        mediaType,
		Provider:    mediaModel.ProviderVideoStore,
		StoragePath: "videos/" + uuid.NewString() + ".mp4",
		Seq:         1,
		UploadedBy:  "worker-1",
	}
	require.NoError(t, db.Create(&m).Error)
	return &m
}

func TestVideoMergeProcessorRecordsMergedRow(t *testing.T) {
	db := newTestDB(t)

	var gotReq mergeworker.MergeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/merge", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(mergeworker.MergeResult{
			ObjectKey:   gotReq.OutputKey,
			DurationSec: 42.5,
			SizeBytes:   1048576,
		})
	}))
	defer server.Close()

	videoStore := videostore.NewClient("https://videos.example.com", "test-key")
	processor := NewVideoMergeProcessor(db, videoStore, mergeworker.NewClient(server.URL), nil)

	first := createMedia(t, db, "WB-100", mediaModel.TypeInbound)
	second := createMedia(t, db, "WB-100", mediaModel.TypeOutbound)

	job := &Job{
		ID:   uuid.NewString(),
		Type: JobTypeVideoMerge,
		Payload: VideoMergeJobPayload{
			WaybillNo:     "WB-100",
			FirstMediaID:  first.ID,
			SecondMediaID: second.ID,
			RequestedBy:   "manager-1",
		}.ToMap(),
	}
	require.NoError(t, processor.Process(job))

	// The worker saw the public playback URLs, in order.
	assert.Equal(t, videoStore.PublicURL(first.StoragePath), gotReq.FirstURL)
	assert.Equal(t, videoStore.PublicURL(second.StoragePath), gotReq.SecondURL)
	assert.True(t, strings.HasPrefix(gotReq.OutputKey, "merged/WB-100/"))

	var merged mediaModel.Media
	require.NoError(t, db.Where("waybill_no = ? AND type = ?", "WB-100", mediaModel.TypeMerged).First(&merged).Error)
	assert.Equal(t, mediaModel.ProviderObjectStorage, merged.Provider)
	assert.Equal(t, gotReq.OutputKey, merged.StoragePath)
	assert.Equal(t, 42.5, merged.DurationSec)
	assert.Equal(t, int64(1048576), merged.SizeBytes)
	assert.Equal(t, "manager-1", merged.UploadedBy)
}

func TestVideoMergeProcessorMissingSource(t *testing.T) {
	db := newTestDB(t)
	videoStore := videostore.NewClient("https://videos.example.com", "test-key")
	processor := NewVideoMergeProcessor(db, videoStore, mergeworker.NewClient("http://127.0.0.1:0"), nil)

	first := createMedia(t, db, "WB-200", mediaModel.TypeInbound)

	job := &Job{
		ID:   uuid.NewString(),
		Type: JobTypeVideoMerge,
		Payload: VideoMergeJobPayload{
			WaybillNo:     "WB-200",
			FirstMediaID:  first.ID,
			SecondMediaID: 9999,
			RequestedBy:   "manager-1",
		}.ToMap(),
	}
	err := processor.Process(job)
	assert.Error(t, err)

	var count int64
	db.Model(&mediaModel.Media{}).Where("type = ?", mediaModel.TypeMerged).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestVideoMergeProcessorRejectsMergedSource(t *testing.T) {
	db := newTestDB(t)
	videoStore := videostore.NewClient("https://videos.example.com", "test-key")
	processor := NewVideoMergeProcessor(db, videoStore, mergeworker.NewClient("http://127.0.0.1:0"), nil)

	first := createMedia(t, db, "WB-300", mediaModel.TypeMerged)
	second := createMedia(t, db, "WB-300", mediaModel.TypeOutbound)

	job := &Job{
		ID:   uuid.NewString(),
		Type: JobTypeVideoMerge,
		Payload: VideoMergeJobPayload{
			WaybillNo:     "WB-300",
			FirstMediaID:  first.ID,
			SecondMediaID: second.ID,
			RequestedBy:   "manager-1",
		}.ToMap(),
	}
	err := processor.Process(job)
	assert.ErrorContains(t, err, "already a merged video")
}
