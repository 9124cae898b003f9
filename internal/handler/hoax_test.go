package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/YellowFlash2012/hoaxgate/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hoaxContent = "a perfectly believable story about something"

type hoaxPage struct {
	Data struct {
		Content []struct {
			ID      uint   `json:"id"`
			Content string `json:"content"`
			User    struct {
				Username string `json:"username"`
			} `json:"user"`
			FileAttachment *struct {
				Filename string `json:"filename"`
			} `json:"fileAttachment"`
		} `json:"content"`
		Page       int `json:"page"`
		Size       int `json:"size"`
		TotalPages int `json:"totalPages"`
	} `json:"data"`
}

func postHoax(t *testing.T, env *testEnv, content, token string) *httptest.ResponseRecorder {
	t.Helper()
	return env.request(t, http.MethodPost, "/api/1.0/hoaxes", gin.H{"content": content}, token)
}

func TestCreateHoax_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	w := postHoax(t, env, hoaxContent, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateHoax_Success(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "user1", "user1@mail.io")
	token := env.login(t, user.Email)

	w := postHoax(t, env, hoaxContent, token)
	assert.Equal(t, http.StatusOK, w.Code)

	var hoax models.Hoax
	require.NoError(t, env.db.First(&hoax).Error)
	assert.Equal(t, hoaxContent, hoax.Content)
	assert.Equal(t, user.ID, hoax.UserID)
	assert.Positive(t, hoax.Timestamp)
}

func TestCreateHoax_ContentLength(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "user1", "user1@mail.io")
	token := env.login(t, user.Email)

	w := postHoax(t, env, "too short", token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	errs := decodeValidationErrors(t, w.Body.Bytes())
	assert.Contains(t, errs, "content")

	w = postHoax(t, env, strings.Repeat("x", 5001), token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListHoaxes_PaginatedNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "user1", "user1@mail.io")
	token := env.login(t, user.Email)

	for i := 0; i < 11; i++ {
		w := postHoax(t, env, hoaxContent+" #"+strconv.Itoa(i), token)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := env.request(t, http.MethodGet, "/api/1.0/hoaxes", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var page hoaxPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Data.Content, 10)
	assert.Equal(t, 2, page.Data.TotalPages)
	assert.Contains(t, page.Data.Content[0].Content, "#10", "newest hoax comes first")
	assert.Equal(t, "user1", page.Data.Content[0].User.Username)
}

func TestListHoaxesForUser(t *testing.T) {
	env := newTestEnv(t)
	user1 := env.addUser(t, "user1", "user1@mail.io")
	user2 := env.addUser(t, "user2", "user2@mail.io")

	token1 := env.login(t, user1.Email)
	token2 := env.login(t, user2.Email)
	postHoax(t, env, hoaxContent+" from one", token1)
	postHoax(t, env, hoaxContent+" from two", token2)

	w := env.request(t, http.MethodGet, "/api/1.0/users/"+strconv.Itoa(int(user1.ID))+"/hoaxes", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var page hoaxPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Data.Content, 1)
	assert.Equal(t, "user1", page.Data.Content[0].User.Username)
}

func TestListHoaxesForUser_UnknownUser(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/1.0/users/999/hoaxes", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteHoax_OwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner", "owner@mail.io")
	other := env.addUser(t, "other", "other@mail.io")

	ownerToken := env.login(t, owner.Email)
	postHoax(t, env, hoaxContent, ownerToken)

	var hoax models.Hoax
	require.NoError(t, env.db.First(&hoax).Error)
	path := "/api/1.0/hoaxes/" + strconv.Itoa(int(hoax.ID))

	// anonymous
	w := env.request(t, http.MethodDelete, path, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// someone else
	otherToken := env.login(t, other.Email)
	w = env.request(t, http.MethodDelete, path, nil, otherToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// the owner
	w = env.request(t, http.MethodDelete, path, nil, ownerToken)
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	require.NoError(t, env.db.Model(&models.Hoax{}).Count(&count).Error)
	assert.Zero(t, count)
}

// ---------- attachments ----------

func uploadAttachment(t *testing.T, env *testEnv, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/1.0/hoaxes/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestUploadAttachment(t *testing.T) {
	env := newTestEnv(t)

	w := uploadAttachment(t, env, "story.txt", []byte("supporting material"))
	require.Equal(t, http.StatusOK, w.Code)

	var att models.FileAttachment
	require.NoError(t, env.db.First(&att).Error)
	assert.True(t, strings.HasSuffix(att.Filename, ".txt"))
	assert.True(t, strings.HasPrefix(att.FileType, "text/plain"))
	assert.Nil(t, att.HoaxID)
}

func TestUploadAttachment_MissingFile(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/1.0/hoaxes/attachments", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateHoax_ClaimsAttachment(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "user1", "user1@mail.io")
	token := env.login(t, user.Email)

	w := uploadAttachment(t, env, "proof.txt", []byte("evidence"))
	require.Equal(t, http.StatusOK, w.Code)
	var uploadResp struct {
		Data struct {
			ID uint `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploadResp))

	w = env.request(t, http.MethodPost, "/api/1.0/hoaxes", gin.H{
		"content":        hoaxContent,
		"fileAttachment": uploadResp.Data.ID,
	}, token)
	require.Equal(t, http.StatusOK, w.Code)

	var att models.FileAttachment
	require.NoError(t, env.db.First(&att, uploadResp.Data.ID).Error)
	require.NotNil(t, att.HoaxID)

	// the listing carries the attachment along
	list := env.request(t, http.MethodGet, "/api/1.0/hoaxes", nil, "")
	var page hoaxPage
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &page))
	require.Len(t, page.Data.Content, 1)
	require.NotNil(t, page.Data.Content[0].FileAttachment)
	assert.Equal(t, att.Filename, page.Data.Content[0].FileAttachment.Filename)
}

func TestExportHoaxes_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/1.0/hoaxes/export", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExportHoaxes(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "user1", "user1@mail.io")
	token := env.login(t, user.Email)
	postHoax(t, env, hoaxContent, token)

	w := env.request(t, http.MethodGet, "/api/1.0/hoaxes/export", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotZero(t, w.Body.Len())
}
