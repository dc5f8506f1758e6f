package controllers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/CUknot/chat_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		code int
		body string
	}{
		{models.NotFound("op", "room %d", 3), http.StatusNotFound, `{"error":"room 3"}`},
		{models.Forbidden("op", "nope"), http.StatusForbidden, `{"error":"nope"}`},
		{models.NewError("op", models.ErrConflict, errors.New("taken")), http.StatusConflict, `{"error":"taken"}`},
		{models.Invalid("op", "bad"), http.StatusBadRequest, `{"error":"bad"}`},
		{models.Storage("op", errors.New("dial tcp: refused")), http.StatusInternalServerError, `{"error":"Internal server error"}`},
		{errors.New("unclassified"), http.StatusInternalServerError, `{"error":"Internal server error"}`},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		respondError(c, tc.err)
		assert.Equal(t, tc.code, w.Code, tc.err.Error())
		assert.JSONEq(t, tc.body, w.Body.String())
	}
}

func TestRoomOfKey(t *testing.T) {
	id, ok := roomOfKey("rooms/12/abc.png")
	assert.True(t, ok)
	assert.Equal(t, uint(12), id)

	for _, key := range []string{"", "rooms/12/", "rooms/x/abc", "files/12/abc", "rooms/0/abc"} {
		_, ok := roomOfKey(key)
		assert.False(t, ok, key)
	}
}
