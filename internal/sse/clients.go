// Package sse fans post-change notifications out to Server-Sent Events clients.
package sse

import (
	"sync"

	"github.com/debemdeboas/inkwell/internal/model"
	"github.com/rs/zerolog"
)

var sseLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	sseLogger = l
}

const (
	EventReload = "reload"

	clientBuffer = 4
)

// Client receives the events of a single post.
type Client struct {
	Msg    chan string
	PostID model.PostID
}

func NewClient(postID model.PostID) *Client {
	return &Client{
		Msg:    make(chan string, clientBuffer),
		PostID: postID,
	}
}

type SSEClients struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewSSEClients() *SSEClients {
	return &SSEClients{
		clients: make(map[*Client]bool),
	}
}

func (s *SSEClients) Add(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
	sseLogger.Debug().Str("post_id", string(client.PostID)).Int("clients", len(s.clients)).Msg("SSE client connected")
}

// Delete removes the client and closes its channel. Deleting twice is a no-op.
func (s *SSEClients) Delete(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.clients[client] {
		return
	}
	delete(s.clients, client)
	close(client.Msg)
	sseLogger.Debug().Str("post_id", string(client.PostID)).Int("clients", len(s.clients)).Msg("SSE client disconnected")
}

func (s *SSEClients) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Broadcast sends msg to every client of postID. Clients whose buffer is full
// miss the message; Broadcast never blocks.
func (s *SSEClients) Broadcast(postID model.PostID, msg string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sent := 0
	for client := range s.clients {
		if client.PostID != postID {
			continue
		}
		select {
		case client.Msg <- msg:
			sent++
		default:
			sseLogger.Debug().Str("post_id", string(postID)).Msg("SSE client buffer full, dropping event")
		}
	}
	return sent
}

// NotifyReload is a repository reload notifier.
func (s *SSEClients) NotifyReload(postID model.PostID) {
	s.Broadcast(postID, EventReload)
}
