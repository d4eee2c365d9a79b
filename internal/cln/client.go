// Package cln adapts a Core Lightning node's JSON-RPC-over-unix-socket
// interface onto the lsps2.ChannelManager capability interface, so the
// service core can be driven by a real node rather than the loopback mock
// used in cmd/lsps2d's demo command.
//
// The request/response plumbing (each call encoding its request straight
// onto the socket, pending requests keyed by request id, a read loop
// dispatching replies back to their caller) follows the same shape as any
// JSON-RPC client talking to
// lightningd's `lightning-rpc` socket: one call in flight per id, replies
// delivered out of order and matched back by id.
package cln

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// rpcRequest is a JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

// rpcResponse is a JSON-RPC 2.0 response envelope.
type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("cln rpc error %d: %s", e.Code, e.Message)
}

// Client is a minimal JSON-RPC client for lightningd's unix-domain RPC
// socket. One call may be outstanding at a time per request id; replies are
// matched back to callers via a map of pending reply channels guarded by mu.
type Client struct {
	conn net.Conn
	enc  *json.Encoder
	mu   sync.Mutex

	nextID  int64
	pending map[int64]chan *rpcResponse

	timeout time.Duration
}

// Dial connects to the lightningd RPC socket at socketPath.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to dial CLN rpc socket: %w", err)
	}

	c := &Client{
		conn:    conn,
		enc:     json.NewEncoder(conn),
		pending: make(map[int64]chan *rpcResponse),
		timeout: 30 * time.Second,
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		var resp rpcResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			continue
		}

		c.mu.Lock()
		replyChan, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()

		if ok {
			replyChan <- &resp
		}
	}
}

// Call issues method with params and unmarshals the result into out. It
// blocks until a reply arrives or the client's timeout elapses.
func (c *Client) Call(method string, params interface{}, out interface{}) error {
	id := atomic.AddInt64(&c.nextID, 1)

	replyChan := make(chan *rpcResponse, 1)
	c.mu.Lock()
	c.pending[id] = replyChan
	c.mu.Unlock()

	if err := c.enc.Encode(&rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return fmt.Errorf("failed to write CLN rpc request: %w", err)
	}

	select {
	case resp := <-replyChan:
		if resp.Error != nil {
			return resp.Error
		}
		if out == nil {
			return nil
		}
		return json.Unmarshal(resp.Result, out)
	case <-time.After(c.timeout):
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return fmt.Errorf("CLN rpc call %q timed out", method)
	}
}

// Close closes the underlying socket.
func (c *Client) Close() error {
	return c.conn.Close()
}
