package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ARedaUni/teloshousemeet/internal/db"
	"github.com/ARedaUni/teloshousemeet/internal/repository"
)

// MockSettingsStore is a mock implementation of settingsStore
type MockSettingsStore struct {
	GetFunc    func(ctx context.Context, key string) (*repository.Setting, error)
	SetFunc    func(ctx context.Context, key string, value json.RawMessage) (*repository.Setting, error)
	ListFunc   func(ctx context.Context) ([]repository.Setting, error)
	DeleteFunc func(ctx context.Context, key string) error
}

func (m *MockSettingsStore) Get(ctx context.Context, key string) (*repository.Setting, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return nil, db.ErrNotFound
}

func (m *MockSettingsStore) Set(ctx context.Context, key string, value json.RawMessage) (*repository.Setting, error) {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value)
	}
	return &repository.Setting{Key: key, Value: value, UpdatedAt: time.Now()}, nil
}

func (m *MockSettingsStore) List(ctx context.Context) ([]repository.Setting, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *MockSettingsStore) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	return nil
}

func TestListSettings(t *testing.T) {
	mock := &MockSettingsStore{
		ListFunc: func(ctx context.Context) ([]repository.Setting, error) {
			return []repository.Setting{
				{Key: repository.SettingRecordingsFolder, Value: json.RawMessage(`"folder-1"`)},
				{Key: repository.SettingAutoRename, Value: json.RawMessage(`true`)},
			}, nil
		},
	}
	handler := NewSettingsHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/settings", nil)

	handler.ListSettings(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data []repository.Setting `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Data, 2)
	assert.Equal(t, repository.SettingRecordingsFolder, response.Data[0].Key)
}

func TestGetSetting(t *testing.T) {
	t.Run("returns stored setting", func(t *testing.T) {
		mock := &MockSettingsStore{
			GetFunc: func(ctx context.Context, key string) (*repository.Setting, error) {
				return &repository.Setting{Key: key, Value: json.RawMessage(`"primary"`)}, nil
			},
		}
		handler := NewSettingsHandler(mock)

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/settings/calendar_id", nil)
		c.Params = gin.Params{{Key: "key", Value: "calendar_id"}}

		handler.GetSetting(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Data repository.Setting `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "calendar_id", response.Data.Key)
		assert.Equal(t, json.RawMessage(`"primary"`), response.Data.Value)
	})

	t.Run("returns 404 for unknown key", func(t *testing.T) {
		handler := NewSettingsHandler(&MockSettingsStore{})

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/settings/nope", nil)
		c.Params = gin.Params{{Key: "key", Value: "nope"}}

		handler.GetSetting(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSetSetting(t *testing.T) {
	t.Run("stores value for key", func(t *testing.T) {
		var gotKey string
		var gotValue json.RawMessage
		mock := &MockSettingsStore{
			SetFunc: func(ctx context.Context, key string, value json.RawMessage) (*repository.Setting, error) {
				gotKey = key
				gotValue = value
				return &repository.Setting{Key: key, Value: value, UpdatedAt: time.Now()}, nil
			},
		}
		handler := NewSettingsHandler(mock)

		body := bytes.NewReader([]byte(`{"value": {"folder": "abc"}}`))
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("PUT", "/settings/recordings_folder_id", body)
		c.Request.Header.Set("Content-Type", "application/json")
		c.Params = gin.Params{{Key: "key", Value: "recordings_folder_id"}}

		handler.SetSetting(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "recordings_folder_id", gotKey)
		assert.JSONEq(t, `{"folder": "abc"}`, string(gotValue))
	})

	t.Run("rejects missing value", func(t *testing.T) {
		handler := NewSettingsHandler(&MockSettingsStore{})

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("PUT", "/settings/calendar_id", bytes.NewReader([]byte(`{}`)))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Params = gin.Params{{Key: "key", Value: "calendar_id"}}

		handler.SetSetting(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns error on store failure", func(t *testing.T) {
		mock := &MockSettingsStore{
			SetFunc: func(ctx context.Context, key string, value json.RawMessage) (*repository.Setting, error) {
				return nil, errors.New("db down")
			},
		}
		handler := NewSettingsHandler(mock)

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("PUT", "/settings/calendar_id", bytes.NewReader([]byte(`{"value": "x"}`)))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Params = gin.Params{{Key: "key", Value: "calendar_id"}}

		handler.SetSetting(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestDeleteSetting(t *testing.T) {
	t.Run("deletes existing setting", func(t *testing.T) {
		var deleted string
		mock := &MockSettingsStore{
			DeleteFunc: func(ctx context.Context, key string) error {
				deleted = key
				return nil
			},
		}
		handler := NewSettingsHandler(mock)

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("DELETE", "/settings/auto_rename", nil)
		c.Params = gin.Params{{Key: "key", Value: "auto_rename"}}

		handler.DeleteSetting(c)
		// c.Status only records a pending status; outside the gin engine the
		// header must be flushed explicitly for the recorder to see it.
		c.Writer.WriteHeaderNow()

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "auto_rename", deleted)
	})

	t.Run("returns 404 for unknown key", func(t *testing.T) {
		mock := &MockSettingsStore{
			DeleteFunc: func(ctx context.Context, key string) error {
				return db.ErrNotFound
			},
		}
		handler := NewSettingsHandler(mock)

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("DELETE", "/settings/nope", nil)
		c.Params = gin.Params{{Key: "key", Value: "nope"}}

		handler.DeleteSetting(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
