package agent

import (
	"context"
	"strings"

	"github.com/wolfman30/pathlab-ai-platform/internal/extract"
	"github.com/wolfman30/pathlab-ai-platform/internal/labapi"
	"github.com/wolfman30/pathlab-ai-platform/internal/session"
	"github.com/wolfman30/pathlab-ai-platform/pkg/logging"
)

// DefaultReportDisclaimer follows every explained report.
const DefaultReportDisclaimer = "This is an automated assistant and not medical advice. Please discuss your results with your doctor."

// ViewReportAgent lists the patient's reports and explains the one they pick.
type ViewReportAgent struct {
	backend    Backend
	renderer   Renderer
	logger     *logging.Logger
	disclaimer string
}

// ViewReportOption configures a ViewReportAgent.
type ViewReportOption func(*ViewReportAgent)

// WithReportDisclaimer replaces the disclaimer sent after an explained
// report. An empty text sends none.
func WithReportDisclaimer(text string) ViewReportOption {
	return func(a *ViewReportAgent) { a.disclaimer = strings.TrimSpace(text) }
}

func NewViewReportAgent(backend Backend, renderer Renderer, logger *logging.Logger, opts ...ViewReportOption) *ViewReportAgent {
	if logger == nil {
		logger = logging.Default()
	}
	a := &ViewReportAgent{backend: backend, renderer: renderer, logger: logger, disclaimer: DefaultReportDisclaimer}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *ViewReportAgent) Handle(ctx context.Context, input string, s *session.Session) (Result, error) {
	st := &s.ViewReport
	// Coming back after a report was shown starts a new pick from the cached list.
	st.SelectedReportID = ""

	if st.ReportList == nil {
		reports, err := a.backend.ListTestResults(ctx)
		if err != nil {
			a.logger.Warn("list test results failed", "session_id", s.ID, "error", err)
			msg, rerr := apology(ctx, a.renderer, input, "load your reports", err)
			if rerr != nil {
				return Result{}, rerr
			}
			return Result{Messages: []string{msg}}, nil
		}
		if len(reports) == 0 {
			msg, err := a.renderer.Render(ctx, Prompt{
				Purpose:      "no reports available",
				Input:        input,
				Instructions: "Tell the patient there are no processed reports on their account yet and that results appear here once the lab finishes processing.",
			})
			if err != nil {
				return Result{}, err
			}
			return Result{Messages: []string{msg}, Done: true}, nil
		}
		st.ReportList = reports
		msg, err := a.renderer.Render(ctx, Prompt{
			Purpose:      "list reports",
			Input:        input,
			Context:      map[string]any{"reports": reportListing(reports)},
			Instructions: "List every report inline as \"1) name (date)\" in the given order without line breaks or bullets, then ask the patient which number they want to see.",
		})
		if err != nil {
			return Result{}, err
		}
		return Result{Messages: []string{msg}}, nil
	}

	idx, ok := extract.FirstIndex(input)
	if !ok || idx < 1 || idx > len(st.ReportList) {
		msg, err := a.renderer.Render(ctx, Prompt{
			Purpose: "ask for a valid report number",
			Input:   input,
			Context: map[string]any{
				"reports": reportListing(st.ReportList),
				"count":   len(st.ReportList),
			},
			Instructions: "Ask the patient to reply with a report number between 1 and count.",
		})
		if err != nil {
			return Result{}, err
		}
		return Result{Messages: []string{msg}}, nil
	}

	report := st.ReportList[idx-1]
	st.SelectedReportID = report.ID.String()
	msg, err := a.renderer.Render(ctx, Prompt{
		Purpose:      "explain selected report",
		Input:        input,
		Context:      reportDetails(report),
		Instructions: "Explain the report in simple words: the overall interpretation first, then each abnormal value with its reference range. If there are no abnormal values, say everything is within range. Suggest discussing results with their doctor.",
	})
	if err != nil {
		return Result{}, err
	}
	messages := []string{msg}
	if a.disclaimer != "" && !strings.Contains(msg, a.disclaimer) {
		messages = append(messages, a.disclaimer)
	}
	return Result{Messages: messages, Done: true}, nil
}

func reportListing(reports []labapi.TestResult) []map[string]any {
	out := make([]map[string]any, 0, len(reports))
	for i, r := range reports {
		out = append(out, map[string]any{
			"number":       i + 1,
			"test":         r.DisplayName(),
			"processed_at": r.ProcessedAt,
		})
	}
	return out
}

func reportDetails(r labapi.TestResult) map[string]any {
	abnormal := make([]map[string]any, 0)
	for _, p := range r.AbnormalParameters() {
		abnormal = append(abnormal, map[string]any{
			"name":            p.Name,
			"value":           p.Value.String(),
			"unit":            p.Unit,
			"reference_range": p.ReferenceRange,
			"flag":            p.Flag,
		})
	}
	return map[string]any{
		"report_id":       r.ID.String(),
		"test":            r.DisplayName(),
		"processed_at":    r.ProcessedAt,
		"status":          r.Status,
		"interpretation":  r.Interpretation,
		"abnormal_values": abnormal,
		"parameter_count": len(r.Parameters),
	}
}
