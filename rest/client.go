// Copyright 2025 The Embedded Redis Authors
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
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/context"

	embedded "github.com/ozimov/embedded-redis"
)

// Client talks to a Handler.  It is safe for concurrent use.
type Client struct {
	user   string // HTTP Basic-Auth
	pass   string
	base   string // URI to root of tree on server
	auth   bool
	client *http.Client
}

// NewClient returns a Client handle.  The transport may be nil to use a
// default transport; baseURI is the base URL of the server.
func NewClient(t *http.Transport, baseURI string) *Client {
	if t == nil {
		t = &http.Transport{}
	}
	return &Client{
		base:   strings.TrimRight(baseURI, "/"),
		client: &http.Client{Transport: t},
	}
}

func (c *Client) SetAuth(user string, pass string) {
	c.user = user
	c.pass = pass
	c.auth = true
}

func (c *Client) url(name string) string {
	if name == "" {
		return c.base + "/instances"
	}
	return c.base + "/instances/" + url.PathEscape(name)
}

func (c *Client) get(ctx context.Context, url string, v interface{}) error {
	req, e := http.NewRequestWithContext(ctx, "GET", url, nil)
	if e != nil {
		return e
	}
	if c.auth {
		req.SetBasicAuth(c.user, c.pass)
	}
	res, e := c.client.Do(req)
	if e != nil {
		return e
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return &Error{Code: res.StatusCode, Message: res.Status}
	}
	body, e := io.ReadAll(res.Body)
	if e != nil {
		return e
	}
	return json.Unmarshal(body, v)
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

// GetCluster returns the topology summary.
func (c *Client) GetCluster() (*ClusterInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ci := &ClusterInfo{}
	if e := c.get(ctx, c.base+"/cluster", ci); e != nil {
		return nil, e
	}
	return ci, nil
}

// Instances returns the names of every instance in the topology.
func (c *Client) Instances() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v := []string{}
	if e := c.get(ctx, c.url(""), &v); e != nil {
		return nil, e
	}
	return v, nil
}

// GetInstance returns the state of one instance.
func (c *Client) GetInstance(name string) (*InstanceInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v := &InstanceInfo{}
	if e := c.get(ctx, c.url(name), v); e != nil {
		return nil, e
	}
	return v, nil
}

// StartInstance starts a stopped instance.  The call blocks until the
// instance reports readiness, so no client-side timeout is applied.
func (c *Client) StartInstance(name string) error {
	return c.post(c.url(name) + "/start")
}

// StopInstance stops a running instance; stopping a stopped instance is
// a no-op, as in the library.
func (c *Client) StopInstance(name string) error {
	return c.post(c.url(name) + "/stop")
}

// GetInstanceLog returns the retained output lines of one instance.
func (c *Client) GetInstanceLog(name string) ([]embedded.LogRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v := []embedded.LogRecord{}
	if e := c.get(ctx, c.url(name)+"/log", &v); e != nil {
		return nil, e
	}
	return v, nil
}

// GetClusterLog returns the cluster's own event log.
func (c *Client) GetClusterLog() ([]embedded.LogRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v := []embedded.LogRecord{}
	if e := c.get(ctx, c.base+"/cluster/log", &v); e != nil {
		return nil, e
	}
	return v, nil
}
