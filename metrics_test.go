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

package embedded

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPrometheusMetrics(t *testing.T) {
	Convey("Lifecycle events land on the private registry", t, func() {
		m := NewPrometheusMetrics("test")

		m.Started("master:group1", 10*time.Millisecond)
		m.Started("replica:group1:0", 10*time.Millisecond)
		m.Stopped("master:group1", 5*time.Millisecond)
		m.LaunchFailed("sentinel:26379")

		So(testutil.ToFloat64(
			m.starts.WithLabelValues("master:group1")),
			ShouldEqual, 1.0)
		So(testutil.ToFloat64(
			m.stops.WithLabelValues("master:group1")),
			ShouldEqual, 1.0)
		So(testutil.ToFloat64(
			m.launchFails.WithLabelValues("sentinel:26379")),
			ShouldEqual, 1.0)

		Convey("The active gauge tracks starts minus stops", func() {
			So(testutil.ToFloat64(m.active), ShouldEqual, 1.0)
		})

		Convey("Two collectors never collide on registration", func() {
			other := NewPrometheusMetrics("test")
			other.Started("master:group1", time.Millisecond)
			So(testutil.ToFloat64(other.active), ShouldEqual, 1.0)
			So(testutil.ToFloat64(m.active), ShouldEqual, 1.0)
		})
	})

	Convey("An empty namespace falls back to the default", t, func() {
		m := NewPrometheusMetrics("")
		m.Started("x", time.Millisecond)
		count, e := testutil.GatherAndCount(m.Registry(),
			"embedded_redis_instance_starts_total")
		So(e, ShouldBeNil)
		So(count, ShouldEqual, 1)
	})
}
