package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// APIClient handles HTTP communication with the backend. Each client keeps
// its own cookie jar, so it behaves like one browser.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string) *APIClient {
	jar, _ := cookiejar.New(nil)
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1/users",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}
}

// Response types matching backend

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
}

type LoginResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type ChannelProfile struct {
	Username         string `json:"username"`
	SubscribersCount int64  `json:"subscribersCount"`
	IsSubscribed     bool   `json:"isSubscribed"`
}

type SessionMessage struct {
	Type   string    `json:"type"`
	UserID string    `json:"userId"`
	At     time.Time `json:"at"`
}

// APIError is a non-2xx envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// RegisterUser creates an account with a generated avatar.
func (c *APIClient) RegisterUser(username, password string) (*User, error) {
	avatar, err := avatarPNG(username)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := map[string]string{
		"fullName": strings.ToUpper(username[:1]) + username[1:],
		"email":    username + "@example.com",
		"username": username,
		"password": password,
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	part, err := mw.CreateFormFile("avatar", username+".png")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(avatar); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/register", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var user User
	if err := c.do(req, &user); err != nil {
		return nil, fmt.Errorf("register failed: %w", err)
	}
	return &user, nil
}

func (c *APIClient) Login(username, password string) (*LoginResponse, error) {
	var result LoginResponse
	if err := c.send(http.MethodPost, "/login", map[string]string{
		"username": username,
		"password": password,
	}, "", &result); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return &result, nil
}

// Refresh posts refreshToken in the body. An empty token leaves the cookie
// jar to supply it.
func (c *APIClient) Refresh(refreshToken string) (*TokenPair, error) {
	var body any
	if refreshToken != "" {
		body = map[string]string{"refreshToken": refreshToken}
	}
	var pair TokenPair
	if err := c.send(http.MethodPost, "/refresh-token", body, "", &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

func (c *APIClient) Logout(token string) error {
	return c.send(http.MethodPost, "/logout", nil, token, nil)
}

func (c *APIClient) CurrentUser(token string) (*User, error) {
	var user User
	if err := c.send(http.MethodGet, "/current-user", nil, token, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *APIClient) Subscribe(token, channel string) (*ChannelProfile, error) {
	var profile ChannelProfile
	if err := c.send(http.MethodPost, "/c/"+channel+"/subscription", nil, token, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// WatchSessions opens the session event socket and forwards every message
// until the connection closes.
func (c *APIClient) WatchSessions(token string) (<-chan SessionMessage, func(), error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/sessions/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Authorization": {"Bearer " + token}})
	if err != nil {
		return nil, nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	resp.Body.Close()

	messages := make(chan SessionMessage, 16)
	go func() {
		defer close(messages)
		for {
			var msg SessionMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			messages <- msg
		}
	}()
	return messages, func() { conn.Close() }, nil
}

func (c *APIClient) send(method, path string, body any, token string, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.do(req, out)
}

func (c *APIClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// avatarPNG draws a flat square whose colour is derived from name.
func avatarPNG(name string) ([]byte, error) {
	var sum byte
	for i := 0; i < len(name); i++ {
		sum += name[i]
	}
	fill := color.RGBA{R: sum, G: sum * 3, B: sum * 7, A: 255}

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, fill)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
