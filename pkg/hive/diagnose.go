package hive

import (
	"fmt"

	"github.com/dfirkit/nthive/internal/format"
	"github.com/dfirkit/nthive/internal/scanner"
	"github.com/dfirkit/nthive/pkg/types"
)

// GetDiagnostics returns whatever was passively collected during normal
// traversal (only populated when OpenOptions.CollectDiagnostics was set).
func (h *Hive) GetDiagnostics() *types.DiagnosticReport {
	return h.diagnostics
}

// Diagnose performs an exhaustive linear scan of the hive, decoding every
// NK and VK cell it finds regardless of whether anything references it,
// and reports REGF-level integrity issues alongside root reachability.
// Unlike GetDiagnostics, it never depends on CollectDiagnostics and never
// stops at the first problem.
func (h *Hive) Diagnose() (*types.DiagnosticReport, error) {
	report := types.NewDiagnosticReport()
	report.FileSize = int64(len(h.data))

	if h.hasHeader {
		h.diagnoseBaseBlock(report)
	}

	for _, c := range scanner.Scan(h.bins, scanner.All, types.NoProgress) {
		switch {
		case tagIs(c.Tag, format.NKSignature):
			if _, err := format.DecodeNK(c.Data); err != nil {
				report.Add(types.Diagnostic{
					Severity:  types.SevError,
					Category:  types.DiagStructure,
					Structure: "NK",
					Offset:    uint64(h.baseOffset + c.Offset),
					Issue:     err.Error(),
				})
			}
		case tagIs(c.Tag, format.VKSignature):
			if _, err := format.DecodeVK(c.Data); err != nil {
				report.Add(types.Diagnostic{
					Severity:  types.SevError,
					Category:  types.DiagStructure,
					Structure: "VK",
					Offset:    uint64(h.baseOffset + c.Offset),
					Issue:     err.Error(),
				})
			}
		}
	}

	if _, err := h.Root(); err != nil {
		report.Add(types.Diagnostic{
			Severity:  types.SevCritical,
			Category:  types.DiagStructure,
			Structure: "REGF",
			Offset:    uint64(h.baseOffset),
			Issue:     fmt.Sprintf("root cell unreachable: %v", err),
			Repair: &types.RepairAction{
				Type:        types.RepairRebuild,
				Description: "locate a KEY_HIVE_ENTRY node via RecoverTree and treat it as root",
				Risk:        types.RiskMedium,
				Confidence:  0.5,
			},
		})
	}

	report.Finalize()
	return report, nil
}

func (h *Hive) diagnoseBaseBlock(report *types.DiagnosticReport) {
	if err := format.VerifyChecksum(h.data[:format.HeaderSize]); err != nil {
		report.Add(types.Diagnostic{
			Severity:  types.SevCritical,
			Category:  types.DiagIntegrity,
			Structure: "REGF",
			Offset:    format.REGFCheckSumOffset,
			Issue:     err.Error(),
			Repair: &types.RepairAction{
				Type:        types.RepairReplace,
				Description: "recompute and store the XOR-32 checksum",
				Risk:        types.RiskLow,
				Confidence:  1.0,
				AutoApply:   true,
			},
		})
	}
	if h.header.PrimarySequence != h.header.SecondarySequence {
		report.Add(types.Diagnostic{
			Severity:  types.SevWarning,
			Category:  types.DiagIntegrity,
			Structure: "REGF",
			Offset:    format.REGFPrimarySeqOffset,
			Issue:     "primary and secondary sequence numbers disagree; hive is dirty",
			Expected:  h.header.SecondarySequence,
			Actual:    h.header.PrimarySequence,
		})
	}
}
