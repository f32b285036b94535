package api_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/media"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type part struct {
	field, name string
	data        []byte
}

func (s *testServer) upload(t *testing.T, kind, bearer string, parts ...part) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		fw, err := mw.CreateFormFile(p.field, p.name)
		require.NoError(t, err)
		_, err = fw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload/"+kind, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestUploadHandler_Product(t *testing.T) {
	srv := newTestServer(t)
	tok, _ := srv.tokenFor(t, "uploader", domain.RoleSeller)

	rec := srv.upload(t, "product", tok,
		part{"files", "a.png", pngHeader},
		part{"files", "b.png", pngHeader},
	)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var stored []media.StoredMedia
	decodeData(t, rec, &stored)
	assert.Len(t, stored, 2)
	assert.Equal(t, 2, srv.store.stored)
}

func TestUploadHandler_AvatarReturnsSingleObject(t *testing.T) {
	srv := newTestServer(t)
	tok, _ := srv.tokenFor(t, "uploader", domain.RoleBuyer)

	rec := srv.upload(t, "avatar", tok, part{"file", "me.png", pngHeader})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var stored media.StoredMedia
	decodeData(t, rec, &stored)
	assert.Contains(t, stored.PublicID, "avatar/")

	rec = srv.upload(t, "avatar", tok, part{"file", "a.png", pngHeader}, part{"file", "b.png", pngHeader})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadHandler_Rejections(t *testing.T) {
	srv := newTestServer(t)
	tok, _ := srv.tokenFor(t, "uploader", domain.RoleBuyer)

	rec := srv.upload(t, "product", "", part{"file", "a.png", pngHeader})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.upload(t, "document", tok, part{"file", "a.png", pngHeader})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.upload(t, "product", tok, part{"file", "notes.txt", []byte("just some text")})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "notes.txt", env.Errors[0].Field)

	rec = srv.upload(t, "product", tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, srv.store.stored)
}

func TestUploadHandler_RollsBackPartialBatch(t *testing.T) {
	srv := newTestServer(t)
	srv.store.failOn = 2
	tok, _ := srv.tokenFor(t, "uploader", domain.RoleSeller)

	rec := srv.upload(t, "product", tok, part{"files", "a.png", pngHeader}, part{"files", "b.png", pngHeader})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Len(t, srv.store.deleted, 1)
}

func TestUploadHandler_RollsBackWhenQueueIsFull(t *testing.T) {
	store := &fakeStore{gate: make(chan struct{})}
	srv := newTestServer(t, withUploadPool(1, 1), withStore(store))
	tok, _ := srv.tokenFor(t, "uploader", domain.RoleSeller)

	go func() {
		deadline := time.Now().Add(5 * time.Second)
		for srv.pool.GetStats().Rejected == 0 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		close(store.gate)
	}()

	rec := srv.upload(t, "product", tok,
		part{"files", "a.png", pngHeader},
		part{"files", "b.png", pngHeader},
		part{"files", "c.png", pngHeader},
		part{"files", "d.png", pngHeader},
	)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())
	assert.Equal(t, int64(1), srv.pool.GetStats().Rejected)

	stored, deleted := store.counts()
	assert.Len(t, deleted, stored)
	assert.LessOrEqual(t, stored, 1)
}

func TestUploadHandler_Delete(t *testing.T) {
	srv := newTestServer(t)
	tok, _ := srv.tokenFor(t, "uploader", domain.RoleBuyer)
	otherTok, _ := srv.tokenFor(t, "stranger", domain.RoleBuyer)
	adminTok, _ := srv.tokenFor(t, "admin", domain.RoleAdmin)

	rec := srv.do(t, http.MethodDelete, "/api/upload", nil, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var first, second media.StoredMedia
	rec = srv.upload(t, "avatar", tok, part{"file", "me.png", pngHeader})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decodeData(t, rec, &first)
	rec = srv.upload(t, "avatar", tok, part{"file", "me.png", pngHeader})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decodeData(t, rec, &second)

	rec = srv.do(t, http.MethodDelete, "/api/upload?publicId="+first.PublicID, nil, otherTok)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = srv.do(t, http.MethodDelete, "/api/upload?publicId=products/abc", nil, tok)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	_, deleted := srv.store.counts()
	assert.Empty(t, deleted)

	rec = srv.do(t, http.MethodDelete, "/api/upload?publicId="+first.PublicID, nil, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = srv.do(t, http.MethodDelete, "/api/upload?publicId="+second.PublicID, nil, adminTok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, deleted = srv.store.counts()
	assert.Equal(t, []string{first.PublicID, second.PublicID}, deleted)
}
