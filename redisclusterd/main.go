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

// Command redisclusterd runs a Redis topology from a YAML manifest and
// serves the REST status API, so the exact topology a test suite
// provisions can also be brought up by hand and inspected.
//
// The flags are
//
//	-a <address>	- listen address for the REST API, default
//			  127.0.0.1:8321
//	-c <manifest>	- cluster manifest path, default cluster.yaml
//	-g <seconds>	- per-instance stop grace period, 0 waits forever
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	embedded "github.com/ozimov/embedded-redis"
	"github.com/ozimov/embedded-redis/rest"
)

var addr string = "127.0.0.1:8321"
var manifest string = "cluster.yaml"
var grace int = 0

func main() {
	flag.StringVar(&addr, "a", addr, "listen address")
	flag.StringVar(&manifest, "c", manifest, "cluster manifest path")
	flag.IntVar(&grace, "g", grace, "stop grace period (seconds)")
	flag.Parse()

	m, e := embedded.LoadManifestFile(manifest)
	if e != nil {
		log.Fatalf("Failed to load manifest %s: %v", manifest, e)
	}

	metrics := embedded.NewPrometheusMetrics("")
	b := m.Builder().Metrics(metrics)
	if grace > 0 {
		b.StopGrace(time.Duration(grace) * time.Second)
	}
	cluster, e := b.Build()
	if e != nil {
		log.Fatalf("Failed to build cluster: %v", e)
	}

	if e = cluster.Start(); e != nil {
		// Partially started instances are ours to clean up.
		cluster.Stop()
		log.Fatalf("Failed to start cluster: %v", e)
	}
	log.Printf("Cluster %s listening on ports %v", m.Name, cluster.Ports())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		log.Fatal(http.ListenAndServe(addr,
			rest.NewHandler(cluster, metrics.Registry())))
	}()

	// Wait for a termination signal, and shutdown cleanly if we get it.
	<-sigs
	if e = cluster.Stop(); e != nil {
		log.Printf("Cluster teardown reported errors: %v", e)
		os.Exit(1)
	}
}
