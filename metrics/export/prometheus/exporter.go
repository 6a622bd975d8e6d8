package prometheus

import (
	"bufio"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/educatebharat/otpauth"
	"github.com/educatebharat/otpauth/metrics/export/internaldefs"
)

// Source supplies metric values. *otpauth.Engine satisfies it.
type Source interface {
	MetricsSnapshot() otpauth.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter serves the current metrics on every request.
type Exporter struct {
	source Source
}

// New returns an Exporter reading from source.
func New(source Source) *Exporter {
	return &Exporter{source: source}
}

func (e *Exporter) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	_ = e.Write(w)
}

// Write renders the exposition text to w.
func (e *Exporter) Write(w io.Writer) error {
	if e == nil || e.source == nil {
		return nil
	}

	snapshot := e.source.MetricsSnapshot()
	bw := bufio.NewWriter(w)

	for _, c := range internaldefs.Counters {
		writeCounter(bw, c.Name, c.Help, snapshot.Counters[c.ID])
	}

	h := internaldefs.LatencyHistogram
	if raw, ok := snapshot.Histograms[h.ID]; ok {
		writeHistogram(bw, h.Name, h.Help, internaldefs.Cumulative(raw))
	}

	writeCounter(bw, internaldefs.AuditDropped, internaldefs.AuditDroppedHelp, e.source.AuditDropped())
	return bw.Flush()
}

func writeHeader(w *bufio.Writer, name, help, kind string) {
	w.WriteString("# HELP " + name + " " + escapeHelp(help) + "\n")
	w.WriteString("# TYPE " + name + " " + kind + "\n")
}

func writeCounter(w *bufio.Writer, name, help string, value uint64) {
	writeHeader(w, name, help, "counter")
	w.WriteString(name + " " + strconv.FormatUint(value, 10) + "\n")
}

func writeHistogram(w *bufio.Writer, name, help string, cumulative [8]uint64) {
	writeHeader(w, name, help, "histogram")
	for i, le := range internaldefs.Bounds {
		w.WriteString(name + `_bucket{le="` + le + `"} ` + strconv.FormatUint(cumulative[i], 10) + "\n")
	}
	w.WriteString(name + "_count " + strconv.FormatUint(cumulative[len(cumulative)-1], 10) + "\n")
	// the engine keeps bucket counts only
	w.WriteString(name + "_sum 0\n")
}

func escapeHelp(help string) string {
	return strings.NewReplacer(`\`, `\\`, "\n", `\n`).Replace(help)
}
