package eval

// #region eval-config
// EvalConfig holds the thresholds for decision validation.
type EvalConfig struct {
	MinF1 float64 // fail when F1 against gold falls below this; 0 keeps F1 informational
}

// DefaultEvalConfig keeps F1 informational.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{MinF1: 0}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region counts
// Counts are the role-level match counts of one assignment against gold.
// Only filled spans count: a correctly unfilled role is neither predicted nor gold.
type Counts struct {
	Correct   int
	Predicted int
	Gold      int
}

// Add accumulates another instance's counts.
func (c *Counts) Add(o Counts) {
	c.Correct += o.Correct
	c.Predicted += o.Predicted
	c.Gold += o.Gold
}

// Precision is Correct/Predicted, zero when nothing was predicted.
func (c Counts) Precision() float64 {
	if c.Predicted == 0 {
		return 0
	}
	return float64(c.Correct) / float64(c.Predicted)
}

// Recall is Correct/Gold, zero when there is no gold.
func (c Counts) Recall() float64 {
	if c.Gold == 0 {
		return 0
	}
	return float64(c.Correct) / float64(c.Gold)
}

// F1 is the harmonic mean of precision and recall.
func (c Counts) F1() float64 {
	p, r := c.Precision(), c.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// #endregion counts

// #region eval-result
// EvalResult is the output of validating one decision.
type EvalResult struct {
	Passed  bool
	Metrics []EvalMetric
	Counts  Counts
	Reason  string
}

// #endregion eval-result
