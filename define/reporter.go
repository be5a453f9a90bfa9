package define

// Reporter receives the stage progress of a conversion job. A stage is a short
// machine friendly name ("ingest", "compile", ...), message is for humans.
type Reporter interface {
	Report(stage string, message string)
}

type ReportFn func(stage string, message string)

func (fn ReportFn) Report(stage string, message string) {
	fn(stage, message)
}

type nopReporter struct{}

func (nopReporter) Report(string, string) {}

// NopReporter drops everything.
var NopReporter Reporter = nopReporter{}

// OrNop returns r, or NopReporter when r is nil.
func OrNop(r Reporter) Reporter {
	if r == nil {
		return NopReporter
	}
	return r
}

// Stage names used across the pipeline.
const (
	StageDetect    = "detect"
	StageIngest    = "ingest"
	StageExtract   = "extract"
	StageTranslate = "translate"
	StageTransform = "transform"
	StageCompile   = "compile"
	StageStructure = "structure"
	StagePack      = "pack"
)
