package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/archivebase/scanrepo/internal/middleware"
	"github.com/archivebase/scanrepo/internal/models"
)

func TestScanHandlerGetInvalidNumber(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewScanHandler(nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/scans/abc", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "number", Value: "abc"}}

	handler.Get(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScanHandlerMoveInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewScanHandler(nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/scans/400/move", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "number", Value: "400"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{Username: "editor", Role: models.RoleEditor})

	handler.Move(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScanHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewScanHandler(nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/scans", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGroupParamsRejectsBadArchiveID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "archiveID", Value: "-1"}, {Key: "file", Value: "23"}}

	_, err := groupParams(c)
	require.Error(t, err)
}
