// Package logsink writes store log events through glog.
package logsink

import (
	"fmt"
	"strings"

	"github.com/golang/glog"
	statebox "github.com/goliatone/go-statebox"
)

// Glog implements statebox.Logger and statebox.EvaluatorLogger. Events with
// an error are logged as warnings; everything else at Verbosity.
type Glog struct {
	Verbosity glog.Level
}

// New returns a Glog sink logging successful events at verbosity.
func New(verbosity glog.Level) *Glog {
	return &Glog{Verbosity: verbosity}
}

func (g *Glog) Log(event statebox.LogEvent) {
	if event.Err != nil {
		glog.Warningf("%s\n", FormatEvent(event))
		return
	}
	if glog.V(g.Verbosity) {
		glog.Infof("%s\n", FormatEvent(event))
	}
}

func (g *Glog) LogEvaluation(event statebox.EvaluatorLogEvent) {
	if event.Err != nil {
		glog.Warningf("%s\n", FormatEvaluation(event))
		return
	}
	if glog.V(g.Verbosity) {
		glog.Infof("%s\n", FormatEvaluation(event))
	}
}

// FormatEvent renders event in the bracketed tag style used across the
// logs, e.g. "[statebox][assign]store=... keys=a,b took=1ms".
func FormatEvent(event statebox.LogEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[statebox][%s]store=%s", event.Kind, event.StoreID)
	if event.SubscriptionID != "" {
		fmt.Fprintf(&b, " sub=%s", event.SubscriptionID)
	}
	if event.Label != "" {
		fmt.Fprintf(&b, " label=%s", event.Label)
	}
	if event.Path != "" {
		fmt.Fprintf(&b, " path=%s", event.Path)
	}
	if len(event.Keys) > 0 {
		fmt.Fprintf(&b, " keys=%s", strings.Join(event.Keys, ","))
	}
	if event.Duration > 0 {
		fmt.Fprintf(&b, " took=%s", event.Duration)
	}
	if event.Err != nil {
		fmt.Fprintf(&b, " error = %s", event.Err)
	}
	return b.String()
}

// FormatEvaluation renders an evaluator event.
func FormatEvaluation(event statebox.EvaluatorLogEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[statebox][eval][%s]label=%s expr=%q", event.Engine, event.Label, event.Expr)
	if event.Duration > 0 {
		fmt.Fprintf(&b, " took=%s", event.Duration)
	}
	if event.Err != nil {
		fmt.Fprintf(&b, " error = %s", event.Err)
	}
	return b.String()
}
