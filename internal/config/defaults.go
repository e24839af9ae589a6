package config

const (
	defaultShotChangeDir      = "~/.local/share/subqc/shotchanges"
	defaultShotChangeDB       = "shotchanges.db"
	defaultSceneThreshold     = 0.05
	defaultBatchReportFile    = "quality_report.txt"
	defaultReportFormat       = "auto"
	defaultCPSLimit           = 25
	defaultCPLLimit           = 42
	defaultMaxLines           = 2
	defaultMinDuration        = 0.833
	defaultMaxDuration        = 7
	defaultInvalidGapMin      = 3
	defaultInvalidGapMax      = 11
	defaultOSTLine            = 20
	defaultMinGap             = 2
	defaultAllowDownload      = true
	defaultBatchFailFast      = false
	defaultShotChangeGenerate = true
)

// report formats accepted by report.format
var reportFormats = []string{"auto", "text", "table", "yaml"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Quality: Quality{
			CPS:             true,
			CPSLimit:        defaultCPSLimit,
			CPL:             true,
			CPLLimit:        defaultCPLLimit,
			MaxLines:        defaultMaxLines,
			MinDuration:     defaultMinDuration,
			MaxDuration:     defaultMaxDuration,
			TextFitsOneLine: true,
			Ellipses:        true,
			OST:             true,
			OSTLine:         defaultOSTLine,
			Sort:            true,
		},
		Gaps: Gaps{
			Check:        true,
			InvalidMin:   defaultInvalidGapMin,
			InvalidMax:   defaultInvalidGapMax,
			Fix:          true,
			MinGap:       defaultMinGap,
			MinGapFrames: true,
		},
		ShotChanges: ShotChanges{
			Check:     true,
			Snap:      true,
			Dir:       defaultShotChangeDir,
			Threshold: defaultSceneThreshold,
			Generate:  defaultShotChangeGenerate,
		},
		Fix: Fix{
			Sort:           true,
			Ellipses:       true,
			JoinShortLines: true,
			SnapToFrames:   true,
		},
		Video: Video{
			AllowDownload: defaultAllowDownload,
		},
		Batch: Batch{
			FailFast:   defaultBatchFailFast,
			ReportFile: defaultBatchReportFile,
		},
		Report: Report{
			Format: defaultReportFormat,
		},
	}
}
