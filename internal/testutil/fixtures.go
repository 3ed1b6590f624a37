package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/dom/videotube-backend/internal/domain"
	"github.com/dom/videotube-backend/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	username string
	email    string
	fullName string
	password string
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	suffix := uuid.New().String()[:8]
	return &UserBuilder{
		username: "testuser_" + suffix,
		email:    fmt.Sprintf("testuser_%s@example.com", suffix),
		fullName: "Test User",
		password: "testpassword123",
	}
}

func (b *UserBuilder) WithUsername(username string) *UserBuilder {
	b.username = username
	return b
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// Build stores the user directly and returns it with the raw password.
func (b *UserBuilder) Build(t *testing.T, users repository.UserRepository) (*domain.User, string) {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     b.username,
		Email:        b.email,
		FullName:     b.fullName,
		Avatar:       "http://localhost/media/avatars/" + b.username + ".png",
		PasswordHash: string(hashedPassword),
	}

	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.password
}

// Register creates the user through POST /register.
func (b *UserBuilder) Register(t *testing.T, ts *TestServer) *http.Response {
	t.Helper()

	body, contentType := MultipartForm(t, map[string]string{
		"fullName": b.fullName,
		"email":    b.email,
		"username": b.username,
		"password": b.password,
	}, map[string][]byte{"avatar": PNG(t, 16, 16)})

	resp, err := http.Post(ts.APIURL("/register"), contentType, body)
	if err != nil {
		t.Fatalf("failed to register: %v", err)
	}
	return resp
}

// Session is what a successful login hands back.
type Session struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
	Cookies      []*http.Cookie
}

// BuildAndLogin stores the user and logs in through the API.
func (b *UserBuilder) BuildAndLogin(t *testing.T, ts *TestServer) *Session {
	t.Helper()
	user, password := b.Build(t, ts.Repos.User)
	return Login(t, ts, user.Username, password)
}

// LoginResponse matches the data of POST /login.
type LoginResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

func Login(t *testing.T, ts *TestServer, username, password string) *Session {
	t.Helper()

	resp := PostJSON(t, ts.APIURL("/login"), map[string]string{
		"username": username,
		"password": password,
	}, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed with status %d", resp.StatusCode)
	}

	env := DecodeEnvelope[LoginResponse](t, resp)
	return &Session{
		User:         env.Data.User,
		AccessToken:  env.Data.AccessToken,
		RefreshToken: env.Data.RefreshToken,
		Cookies:      resp.Cookies(),
	}
}

// VideoBuilder creates videos owned by a test user.
type VideoBuilder struct {
	title string
}

func NewVideoBuilder() *VideoBuilder {
	return &VideoBuilder{title: "video_" + uuid.New().String()[:8]}
}

func (b *VideoBuilder) WithTitle(title string) *VideoBuilder {
	b.title = title
	return b
}

func (b *VideoBuilder) Build(t *testing.T, videos repository.VideoRepository, owner uuid.UUID) *domain.Video {
	t.Helper()

	video := &domain.Video{
		ID:          uuid.New(),
		OwnerID:     owner,
		Title:       b.title,
		Description: "description of " + b.title,
		VideoFile:   "http://localhost/media/videos/" + b.title + ".mp4",
		Thumbnail:   "http://localhost/media/thumbnails/" + b.title + ".png",
		Duration:    42.5,
		IsPublished: true,
	}
	if err := videos.Create(context.Background(), video); err != nil {
		t.Fatalf("failed to create video: %v", err)
	}
	return video
}

// PNG encodes a blank w×h image.
func PNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// MultipartForm builds a multipart body and returns it with its content type.
func MultipartForm(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			t.Fatalf("failed to write field %s: %v", name, err)
		}
	}
	for name, data := range files {
		fw, err := mw.CreateFormFile(name, name+".png")
		if err != nil {
			t.Fatalf("failed to create file %s: %v", name, err)
		}
		fw.Write(data)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

// PostJSON sends body as JSON with the given cookies.
func PostJSON(t *testing.T, url string, body any, cookies []*http.Cookie) *http.Response {
	t.Helper()
	return DoJSON(t, http.MethodPost, url, body, cookies, "")
}

// DoJSON sends a JSON request, authenticating with cookies and, when set,
// a bearer token.
func DoJSON(t *testing.T, method, url string, body any, cookies []*http.Cookie, bearer string) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

// Cookie returns the named cookie or nil.
func Cookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
