package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sechecker/sechecker/internal/report"
	"github.com/sechecker/sechecker/internal/types"
)

const logFile = "audit.jsonl"

// RunRecord is one line of the audit log.
type RunRecord struct {
	Timestamp      time.Time      `json:"timestamp"`
	RunID          string         `json:"run_id"`
	Policy         string         `json:"policy"`
	Modules        int            `json:"modules"`
	States         map[string]int `json:"states"`
	SeverityCounts map[string]int `json:"severity_counts"`
	Duration       string         `json:"duration"`
	FailOn         string         `json:"fail_on,omitempty"`
	Failed         bool           `json:"failed"`
	TopItems       []ItemSummary  `json:"top_items,omitempty"`
}

type ItemSummary struct {
	Module   string `json:"module"`
	Item     string `json:"item"`
	Severity string `json:"severity"`
}

type AuditLog struct {
	logPath string
}

func NewAuditLog(dir string) *AuditLog {
	return &AuditLog{logPath: filepath.Join(dir, logFile)}
}

func (a *AuditLog) Path() string { return a.logPath }

// LoadHistory returns records newest first. Undecodable lines are skipped.
func (a *AuditLog) LoadHistory() ([]RunRecord, error) {
	f, err := os.Open(a.logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var records []RunRecord
	decoder := json.NewDecoder(f)
	for decoder.More() {
		var record RunRecord
		if err := decoder.Decode(&record); err != nil {
			break
		}
		records = append(records, record)
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

func (a *AuditLog) LogRun(record RunRecord) error {
	if record.RunID == "" {
		record.RunID = uuid.NewString()
	}
	if err := os.MkdirAll(filepath.Dir(a.logPath), 0o755); err != nil {
		return fmt.Errorf("failed to create audit dir: %w", err)
	}
	f, err := os.OpenFile(a.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(record); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	return nil
}

// NewRunRecord summarizes views into a record. At most ten failing items
// are kept, worst first and otherwise in report order.
func NewRunRecord(policy string, views []report.View, duration time.Duration, failOn string, failed bool) RunRecord {
	states, sevs := report.Counts(views)
	rec := RunRecord{
		Timestamp:      time.Now(),
		RunID:          uuid.NewString(),
		Policy:         policy,
		Modules:        len(views),
		States:         states,
		SeverityCounts: sevs,
		Duration:       duration.String(),
		FailOn:         failOn,
		Failed:         failed,
	}
	type ranked struct {
		ItemSummary
		sev types.Severity
	}
	var all []ranked
	for _, v := range views {
		if v.Result == nil {
			continue
		}
		for _, it := range v.Result.Failing() {
			s := it.Severity()
			all = append(all, ranked{ItemSummary{Module: v.Name, Item: it.ID, Severity: s.String()}, s})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].sev > all[j].sev })
	for i, r := range all {
		if i >= 10 {
			break
		}
		rec.TopItems = append(rec.TopItems, r.ItemSummary)
	}
	return rec
}
