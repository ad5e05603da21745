package design

import (
	"promptlab/domain/space"
)

// Flattened record columns. Parameter columns get fixed prefixes so results
// from every composition policy share one uniform schema and can be
// concatenated into a single table.
const (
	ColPrompt   = "prompt"
	ColOutput   = "output"
	ParamPrefix = "param_"
	HyperPrefix = "hyper_"
)

// Record is one flattened output row: prompt, output, one param_<name>
// column per prompt parameter, one hyper_<name> column per hyperparameter.
type Record map[string]space.Value

// Flatten converts a condition and its produced output into a Record. Pure:
// the same inputs always yield an identical record.
func Flatten(cond Condition, output string) Record {
	rec := make(Record, 2+len(cond.PromptParams)+len(cond.Hypers))
	rec[ColPrompt] = cond.Prompt
	rec[ColOutput] = output
	for _, b := range cond.PromptParams {
		rec[ParamPrefix+b.Name] = b.Value
	}
	for _, b := range cond.Hypers {
		rec[HyperPrefix+b.Name] = b.Value
	}
	return rec
}

// Columns returns the design's stable column order for tabular export:
// prompt, output, prompt parameters in declared order, hyperparameters in
// declared order. Identical for every record the design produces.
func (d *Design) Columns() []string {
	cols := make([]string, 0, 2+d.promptSpace.Len()+d.hyperSpace.Len())
	cols = append(cols, ColPrompt, ColOutput)
	for _, name := range d.promptSpace.Names() {
		cols = append(cols, ParamPrefix+name)
	}
	for _, name := range d.hyperSpace.Names() {
		cols = append(cols, HyperPrefix+name)
	}
	return cols
}
