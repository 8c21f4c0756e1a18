// Copyright 2014 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package docdb

import (
	"context"
	"os"

	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
)

// logSink is the minimal surface docdb needs from a logging backend. It is
// satisfied by stderrSink and exists so tests can swap in a recording sink
// without pulling in a real log file.
type logSink interface {
	Logf(ctx context.Context, format string, args ...interface{})
}

type stderrSink struct{}

func (stderrSink) Logf(ctx context.Context, format string, args ...interface{}) {
	tags := logtags.FromContext(ctx)
	line := append([]interface{}{tags}, args...)
	redact.Fprintf(os.Stderr, "%s "+format+"\n", line...)
}

var defaultSink logSink = stderrSink{}

// seekSpikeThreshold is the per-operation seek count above which docdb logs
// a cost-signal warning. A subtree scan seeks exactly once, and a batch
// build seeks at most once per distinct path it probes; a count above this
// threshold on one operation means either an unusually wide fan-out or read
// amplification worth a human looking at it.
const seekSpikeThreshold = 16

// withOpTag returns ctx annotated with the operation tag that accompanies
// every log line docdb emits, the same per-request tagging idiom used for
// context annotation elsewhere.
func withOpTag(ctx context.Context, op string) context.Context {
	return logtags.AddTag(ctx, op, nil)
}

// withOpTags is withOpTag plus a path tag, for log lines scoped to a single
// DocPath.
func withOpTags(ctx context.Context, op string, path DocPath) context.Context {
	return logtags.AddTag(withOpTag(ctx, op), "path", path.String())
}

// logSeekSpike logs a warning when a single operation's seek count exceeds
// threshold, the read-amplification signal the Seeks()/GetAndResetSeeks()
// counters exist to feed. ctx is expected to already carry whatever
// op/path tags the caller wants on the line (see withOpTag/withOpTags).
func logSeekSpike(ctx context.Context, seeks int, threshold int) {
	if seeks <= threshold {
		return
	}
	defaultSink.Logf(ctx, "seek count %d exceeds threshold %d", seeks, threshold)
}
