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

// Command redisclusterctl is a client for redisclusterd.  It uses
// subcommands.
//
// The flags are
//
//	-a <address>	- server address, default is
//			  http://127.0.0.1:8321
//	-u <user:pass>	- user name & password for basic auth
//
// Subcommands are
//
//	instances             - list all instances
//	status [<inst> ...]   - show status for the named instances (or all)
//	info <inst>           - show detailed instance info
//	start <inst>          - start the named instance
//	stop <inst>           - stop the named instance
//	log <inst>            - obtain the retained output of the instance
//	monitor               - full screen cluster monitor
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/ozimov/embedded-redis/rest"
)

var addr string = "http://127.0.0.1:8321"
var auth string = ""

func usage() {
	log.Fatalf("Usage: %s [-a <address>] [-u <user:pass>] <subcommand>",
		os.Args[0])
}

func status(s *rest.InstanceInfo) string {
	if s.Active {
		return "active"
	}
	return "stopped"
}

func showStatus(s *rest.InstanceInfo) {
	ports := make([]string, 0, len(s.Ports))
	for _, p := range s.Ports {
		ports = append(ports, fmt.Sprintf("%d", p))
	}
	fmt.Printf("%-24s %-8s %s\n", s.Name, status(s),
		strings.Join(ports, ","))
}

func sortInfos(items []*rest.InstanceInfo) {
	sort.Slice(items, func(i, j int) bool {
		a := items[i]
		b := items[j]
		if a.Active != b.Active {
			// put stopped items at front, they need attention
			return !a.Active
		}
		return a.Name < b.Name
	})
}

func main() {
	flag.StringVar(&addr, "a", addr, "server address")
	flag.StringVar(&auth, "u", auth, "user:pass authentication")
	flag.Parse()

	client := rest.NewClient(nil, addr)
	if auth != "" {
		a := strings.SplitN(auth, ":", 2)
		if len(a) != 2 {
			log.Fatalf("Bad user:pass supplied")
		}
		client.SetAuth(a[0], a[1])
	}

	args := flag.Args()
	if len(args) == 0 {
		args = []string{"monitor"}
	}

	switch args[0] {
	case "instances":
		if len(args) != 1 {
			usage()
		}
		names, e := client.Instances()
		if e != nil {
			log.Fatalf("Failed: %v", e)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Println(name)
		}
	case "start":
		if len(args) != 2 {
			usage()
		}
		if e := client.StartInstance(args[1]); e != nil {
			log.Fatalf("Failed: %v", e)
		}
	case "stop":
		if len(args) != 2 {
			usage()
		}
		if e := client.StopInstance(args[1]); e != nil {
			log.Fatalf("Failed: %v", e)
		}
	case "log":
		if len(args) != 2 {
			usage()
		}
		recs, e := client.GetInstanceLog(args[1])
		if e != nil {
			log.Fatalf("Failed: %v", e)
		}
		for _, r := range recs {
			fmt.Println(r.Text)
		}
	case "info":
		if len(args) != 2 {
			usage()
		}
		s, e := client.GetInstance(args[1])
		if e != nil {
			log.Fatalf("Failed: %v", e)
		}
		fmt.Printf("Name:    %s\n", s.Name)
		fmt.Printf("Status:  %s\n", status(s))
		fmt.Printf("Ports:  ")
		for _, p := range s.Ports {
			fmt.Printf(" %d", p)
		}
		fmt.Printf("\n")
	case "status":
		names := args[1:]
		var e error
		if len(names) == 0 {
			names, e = client.Instances()
			if e != nil {
				log.Fatalf("Failed: %v", e)
			}
		}
		if len(names) == 0 {
			// No instances?
			return
		}
		infos := []*rest.InstanceInfo{}
		for _, n := range names {
			info, e := client.GetInstance(n)
			if e == nil {
				infos = append(infos, info)
			} else {
				log.Printf("Failed: %v", e)
			}
		}
		sortInfos(infos)
		for _, info := range infos {
			showStatus(info)
		}
	case "monitor":
		doMonitor(client, addr)
	default:
		usage()
	}
}
