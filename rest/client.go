// Copyright 2026 The Llamavisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rest

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/context"

	"github.com/llamavisor/llamavisor"
)

// LogInfo carries a log snapshot along with the Etag it was fetched
// under, so WatchLog can pick up where the last call left off.
type LogInfo struct {
	etag    string
	Records []llamavisor.LogRecord
}

type Client struct {
	user      string // HTTP Basic-Auth
	pass      string
	base      string // URI to root of tree on server
	auth      bool
	client    *http.Client
	transport *http.Transport

	// Cached data
	info *Info
	log  *LogInfo
	lock sync.Mutex
}

func (c *Client) SetAuth(user string, pass string) {
	c.user = user
	c.pass = pass
	c.auth = true
}

func (c *Client) pollInfo(ctx context.Context, secs int, last *Info) (*Info, error) {

	v := &Info{}
	c.lock.Lock()
	cached := c.info
	c.lock.Unlock()

	otag := ""
	if last == nil {
		secs = 0
	} else if cached != nil && last.etag != cached.etag {
		// The cache has already moved past what the caller saw.
		return cached, nil
	} else {
		otag = last.etag
	}

	etag, e := c.poll(ctx, c.base+"/", otag, secs, v)
	if e != nil {
		c.lock.Lock()
		c.info = nil
		c.lock.Unlock()
		return nil, e
	}
	if etag == "" {
		return cached, nil
	}
	v.etag = etag
	c.lock.Lock()
	c.info = v
	c.lock.Unlock()
	return v, nil
}

// Info fetches the current workload status.
func (c *Client) Info() (*Info, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return c.pollInfo(ctx, 0, nil)
}

// WatchInfo long polls until the status changes from last, which may
// be nil for an immediate fetch.
func (c *Client) WatchInfo(ctx context.Context, last *Info) (*Info, error) {
	return c.pollInfo(ctx, maxPollSecs, last)
}

// Workers fetches the endpoint list.
func (c *Client) Workers() ([]WorkerInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v := []WorkerInfo{}
	if _, e := c.poll(ctx, c.base+"/workers", "", 0, &v); e != nil {
		return nil, e
	}
	return v, nil
}

// Restart asks the daemon to relaunch the child.
func (c *Client) Restart() error {
	return c.post(c.base + "/restart")
}

func (c *Client) pollLog(ctx context.Context, secs int, last *LogInfo) (*LogInfo, error) {

	v := &LogInfo{}

	c.lock.Lock()
	cached := c.log
	c.lock.Unlock()

	otag := ""
	if last == nil {
		secs = 0
	} else if cached != nil && last.etag != cached.etag {
		return cached, nil
	} else {
		otag = last.etag
	}

	etag, e := c.poll(ctx, c.base+"/log", otag, secs, &v.Records)
	if e != nil {
		c.lock.Lock()
		c.log = nil
		c.lock.Unlock()
		return nil, e
	}
	if etag == "" {
		return cached, nil
	}
	v.etag = etag
	c.lock.Lock()
	c.log = v
	c.lock.Unlock()
	return v, nil
}

// GetLog fetches the buffered output, utilizing caching checks.  It
// does not wait for changes.
func (c *Client) GetLog() (*LogInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return c.pollLog(ctx, 0, nil)
}

// WatchLog long polls until the log moves past last.
func (c *Client) WatchLog(ctx context.Context, last *LogInfo) (*LogInfo, error) {
	return c.pollLog(ctx, maxPollSecs, last)
}

// poll issues an HTTP GET against the URL, optionally checking for a
// cache, including optionally issuing a long poll that tries to wait
// until the value changes.  The return values are the new Etag and any
// error.  If the value did not change, then the returned etag will be
// "", but the error will be nil.
type chanResp struct {
	r *http.Response
	e error
}

func (c *Client) poll(ctx context.Context, url string, etag string, wait int, v interface{}) (string, error) {

	req, e := http.NewRequest("GET", url, nil)
	if e != nil {
		return "", e
	}
	if c.auth {
		req.SetBasicAuth(c.user, c.pass)
	}
	client := c.client
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
		if wait > 0 {
			req.Header.Set(PollEtagHeader, etag)
			req.Header.Set(PollTimeHeader, strconv.Itoa(wait))
		}
	}

	ch := make(chan chanResp)
	go func() {
		res, e := client.Do(req)
		ch <- chanResp{r: res, e: e}
	}()

	var res *http.Response
	select {
	case <-ctx.Done():
		c.transport.CancelRequest(req)
		<-ch // wait for the Do to finish (or be canceled)
		return "", ctx.Err()
	case cr := <-ch:
		res = cr.r
		e = cr.e
	}
	if e != nil {
		return "", e
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotModified {
		return "", nil
	}
	if res.StatusCode != http.StatusOK {
		return "", &Error{Code: res.StatusCode, Message: res.Status}
	}
	body, e := io.ReadAll(res.Body)
	if e != nil {
		return "", e
	}
	if e := json.Unmarshal(body, v); e != nil {
		return "", e
	}
	return res.Header.Get("Etag"), nil
}

func (c *Client) post(url string) error {
	req, e := http.NewRequest("POST", url, strings.NewReader(""))
	if e != nil {
		return e
	}
	req.Header.Set("Content-Type", "text/plain") // we don't really care
	if c.auth {
		req.SetBasicAuth(c.user, c.pass)
	}
	res, e := c.client.Do(req)
	if e != nil {
		return e
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return &Error{Code: res.StatusCode, Message: res.Status}
	}
	return nil
}

// NewClient returns a Client handle.  The transport may be nil to use
// a default transport, but it may also be adjusted to support
// additional options such as TLS.  baseURI is the base URL to use.
func NewClient(t *http.Transport, baseURI string) *Client {
	if t == nil {
		t = &http.Transport{}
	}
	c := &Client{
		transport: t,
		base:      strings.TrimSuffix(baseURI, "/"),
		client:    &http.Client{Transport: t},
	}
	return c
}
