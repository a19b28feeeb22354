package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/marmos91/smboffload/cmd/offloadctl/cmdutil"
	"github.com/marmos91/smboffload/internal/adapter/smb/types"
	"github.com/marmos91/smboffload/internal/adapter/smb/v2/handlers"
	"github.com/marmos91/smboffload/internal/bytesize"
	"github.com/marmos91/smboffload/internal/cli/output"
	"github.com/marmos91/smboffload/internal/logger"
	"github.com/marmos91/smboffload/internal/telemetry"
	"github.com/marmos91/smboffload/pkg/config"
	"github.com/marmos91/smboffload/pkg/metrics"
	smbprom "github.com/marmos91/smboffload/pkg/metrics/prometheus"
	"github.com/marmos91/smboffload/pkg/offload"
)

const (
	probeSessionID = 1
	probeTreeID    = 1
	probeClient    = "offloadctl"
)

var errProbeFailed = errors.New("probe failed")

// ProbeStep is the outcome of one probe operation.
type ProbeStep struct {
	Step   string `json:"step" yaml:"step"`
	Status string `json:"status" yaml:"status"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
	OK     bool   `json:"ok" yaml:"ok"`
}

// MetricSample is one gathered Prometheus sample.
type MetricSample struct {
	Name   string  `json:"name" yaml:"name"`
	Labels string  `json:"labels,omitempty" yaml:"labels,omitempty"`
	Value  float64 `json:"value" yaml:"value"`
}

// ProbeReport is the full probe result.
type ProbeReport struct {
	Backend string         `json:"backend" yaml:"backend"`
	Steps   []ProbeStep    `json:"steps" yaml:"steps"`
	Metrics []MetricSample `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// Headers implements output.TableRenderer.
func (r *ProbeReport) Headers() []string { return []string{"Step", "Status", "Detail"} }

// Rows implements output.TableRenderer.
func (r *ProbeReport) Rows() [][]string {
	rows := make([][]string, 0, len(r.Steps))
	for _, s := range r.Steps {
		rows = append(rows, []string{s.Step, s.Status, s.Detail})
	}
	return rows
}

// Failed reports whether any step failed.
func (r *ProbeReport) Failed() bool {
	for _, s := range r.Steps {
		if !s.OK {
			return true
		}
	}
	return false
}

func newProbeCmd() *cobra.Command {
	var (
		size        = 64 * bytesize.KiB
		withMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Exercise the offload paths end to end",
		Long: `Run the copy-offload flow against the configured token store.

The probe opens a source and a destination file on an in-memory copier,
requests a resume key for the source, copies it with FSCTL_SRV_COPYCHUNK,
clones it with FSCTL_DUPLICATE_EXTENTS_TO_FILE, closes the source and
checks that its tokens are gone.

Examples:
  offloadctl probe
  offloadctl probe --size 4MiB
  offloadctl probe --config /etc/smboffload/config.yaml --metrics -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdutil.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if err := logger.Init(cfg.Logging.LoggerConfig()); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger.Debug("Configuration loaded", "source", cmdutil.ConfigSource(cmd))

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			stopTelemetry, err := startTelemetry(ctx, cfg)
			if err != nil {
				return err
			}
			defer stopTelemetry()

			var reg *prometheus.Registry
			if withMetrics || cfg.Metrics.Enabled {
				reg = prometheus.NewRegistry()
			}

			report, err := runProbe(ctx, cfg, reg, size)
			if err != nil {
				return err
			}

			printer, err := cmdutil.Printer(cmd)
			if err != nil {
				return err
			}
			if err := printReport(printer, report); err != nil {
				return err
			}
			if report.Failed() {
				return errProbeFailed
			}
			return nil
		},
	}

	cmd.Flags().Var(&size, "size", "Bytes to copy, e.g. 64KiB or 3MB (at most 16MiB)")
	cmd.Flags().BoolVar(&withMetrics, "metrics", false, "Collect and print metrics even if disabled in config")
	return cmd
}

func startTelemetry(ctx context.Context, cfg *config.Config) (func(), error) {
	shutdown, err := telemetry.Init(ctx, cfg.Telemetry.TracingConfig(Version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	stopProfiling, err := telemetry.InitProfiling(cfg.Telemetry.Profiling.ProfilerConfig(Version))
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize profiling: %w", err)
	}

	return func() {
		if err := stopProfiling(); err != nil {
			logger.Error("profiling shutdown error", logger.Err(err))
		}
		if err := shutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}, nil
}

// runProbe drives the handlers through the full offload flow. Failed steps
// are recorded in the report; only setup errors are returned.
func runProbe(ctx context.Context, cfg *config.Config, reg *prometheus.Registry, size bytesize.ByteSize) (*ProbeReport, error) {
	if size == 0 || size > types.ServerSideCopyMaxDataSize {
		return nil, fmt.Errorf("--size must be between 1 and %s", bytesize.ByteSize(types.ServerSideCopyMaxDataSize))
	}

	var (
		registryMetrics *offload.Metrics
		requestMetrics  metrics.SMBMetrics
	)
	if reg != nil {
		registryMetrics = offload.NewMetrics(reg)
		requestMetrics = smbprom.NewSMBMetrics(reg)
	}

	copier := handlers.NewMemoryCopier()
	h, err := handlers.NewHandler(handlers.Options{
		Store:          cfg.Offload.StoreOptions(),
		Metrics:        registryMetrics,
		RequestMetrics: requestMetrics,
		Copier:         copier,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize offload context: %w", err)
	}

	report := &ProbeReport{Backend: h.Offload().Backend()}
	defer func() {
		if err := h.Shutdown(); err != nil {
			logger.Warn("Handler shutdown failed", logger.Err(err))
		}
	}()

	p := &prober{h: h, copier: copier, report: report, ctx: handlers.NewSMBHandlerContext(ctx, probeClient, probeSessionID, probeTreeID, 0)}
	p.run(int(size))

	if reg != nil {
		samples, err := gatherMetrics(reg)
		if err != nil {
			return nil, err
		}
		report.Metrics = samples
	}
	return report, nil
}

type prober struct {
	h      *handlers.Handler
	copier *handlers.MemoryCopier
	report *ProbeReport
	ctx    *handlers.SMBHandlerContext
	msgID  uint64
}

func (p *prober) record(step string, status types.Status, ok bool, detail string) bool {
	p.report.Steps = append(p.report.Steps, ProbeStep{Step: step, Status: status.String(), Detail: detail, OK: ok})
	return ok
}

func (p *prober) ioctl(req *handlers.IoctlRequest) (*handlers.HandlerResult, []byte, error) {
	p.msgID++
	p.ctx.MessageID = p.msgID
	result, err := p.h.Ioctl(p.ctx, req.Encode())
	if err != nil || result.Status.IsError() || result.Data == nil {
		return result, nil, err
	}
	resp, err := handlers.DecodeIoctlResponse(result.Data)
	if err != nil {
		return result, nil, err
	}
	return result, resp.Output, nil
}

func (p *prober) run(size int) {
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	src := p.h.Open(probeSessionID, probeTreeID, "/probe/source")
	dst := p.h.Open(probeSessionID, probeTreeID, "/probe/copy")
	clone := p.h.Open(probeSessionID, probeTreeID, "/probe/clone")
	p.copier.WriteFile(src.Path, payload)

	// Resume key
	result, out, err := p.ioctl(handlers.NewFsctlRequest(types.FsctlSrvRequestResumeKey, src.FileID, nil, 64))
	if err != nil || result.Status != types.StatusSuccess || len(out) < offload.ResumeKeyTokenLen {
		p.record("request-resume-key", statusOf(result), false, errDetail(err))
		return
	}
	key := offload.Token(out[:offload.ResumeKeyTokenLen]).Clone()
	p.record("request-resume-key", result.Status, true, key.String())

	// Copychunk, split at the server chunk size
	ccReq := &handlers.CopyChunkRequest{SourceKey: key}
	for off := 0; off < size; off += types.ServerSideCopyMaxChunkSize {
		n := min(size-off, types.ServerSideCopyMaxChunkSize)
		ccReq.Chunks = append(ccReq.Chunks, handlers.CopyChunk{SourceOffset: uint64(off), TargetOffset: uint64(off), Length: uint32(n)})
	}
	result, out, err = p.ioctl(handlers.NewFsctlRequest(types.FsctlSrvCopyChunk, dst.FileID, ccReq.Encode(), 64))
	if err != nil || result.Status != types.StatusSuccess {
		p.record("copychunk", statusOf(result), false, errDetail(err))
	} else if resp, derr := handlers.DecodeCopyChunkResponse(out); derr != nil {
		p.record("copychunk", result.Status, false, derr.Error())
	} else {
		match := bytes.Equal(p.copier.ReadFile(dst.Path), payload)
		p.record("copychunk", result.Status, match,
			fmt.Sprintf("%d chunks, %d bytes, content match=%t", resp.ChunksWritten, resp.TotalBytesWritten, match))
	}

	// Duplicate extents
	dup := &handlers.DuplicateExtentsRequest{SourceFileID: src.FileID, ByteCount: uint64(size)}
	result, _, err = p.ioctl(handlers.NewFsctlRequest(types.FsctlDuplicateExtentsToFile, clone.FileID, dup.Encode(), 0))
	if err != nil || result.Status != types.StatusSuccess {
		p.record("duplicate-extents", statusOf(result), false, errDetail(err))
	} else {
		match := bytes.Equal(p.copier.ReadFile(clone.Path), payload)
		p.record("duplicate-extents", result.Status, match,
			fmt.Sprintf("%d bytes, content match=%t, tokens bound=%d", size, match, src.OffloadLinks().Len()))
	}

	// Close releases every token of the source handle
	tokens := src.OffloadLinks().Tokens()
	closeReq := &handlers.CloseRequest{FileID: src.FileID}
	result, err = p.h.Close(p.ctx, closeReq.Encode())
	if err != nil || result.Status != types.StatusSuccess {
		p.record("close", statusOf(result), false, errDetail(err))
		return
	}
	p.record("close", result.Status, true, fmt.Sprintf("%d tokens released", len(tokens)))

	released := 0
	for _, t := range tokens {
		if _, err := p.h.Offload().Fetch(p.ctx.Context, t); errors.Is(err, offload.ErrNotFound) {
			released++
		}
	}
	p.record("verify-release", types.StatusSuccess, released == len(tokens),
		fmt.Sprintf("%d/%d tokens unresolvable, %d live", released, len(tokens), p.h.Offload().Len()))
}

func statusOf(r *handlers.HandlerResult) types.Status {
	if r == nil {
		return types.StatusInternalError
	}
	return r.Status
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// gatherMetrics flattens the registry into sorted samples.
func gatherMetrics(reg prometheus.Gatherer) ([]MetricSample, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	var samples []MetricSample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			samples = append(samples, MetricSample{
				Name:   mf.GetName(),
				Labels: formatLabels(m.GetLabel()),
				Value:  sampleValue(mf.GetType(), m),
			})
		}
	}
	sort.Slice(samples, func(i, j int) bool {
		if samples[i].Name != samples[j].Name {
			return samples[i].Name < samples[j].Name
		}
		return samples[i].Labels < samples[j].Labels
	})
	return samples, nil
}

func formatLabels(pairs []*dto.LabelPair) string {
	parts := make([]string, 0, len(pairs))
	for _, lp := range pairs {
		parts = append(parts, lp.GetName()+"="+lp.GetValue())
	}
	return strings.Join(parts, ",")
}

func sampleValue(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return float64(m.GetHistogram().GetSampleCount())
	default:
		return m.GetUntyped().GetValue()
	}
}

func printReport(printer *output.Printer, report *ProbeReport) error {
	if printer.Format() != output.FormatTable {
		return printer.Print(report)
	}

	printer.Printf("Backend: %s\n\n", report.Backend)
	if err := printer.Print(report); err != nil {
		return err
	}
	if len(report.Metrics) > 0 {
		printer.Printf("\n")
		table := output.NewTableData("Metric", "Labels", "Value")
		for _, s := range report.Metrics {
			table.AddRow(s.Name, s.Labels, strconv.FormatFloat(s.Value, 'f', -1, 64))
		}
		if err := printer.Print(table); err != nil {
			return err
		}
	}

	printer.Printf("\n")
	if report.Failed() {
		printer.Error("Probe failed")
	} else {
		printer.Success("Probe passed")
	}
	return nil
}
