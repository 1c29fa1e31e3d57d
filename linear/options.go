package linear

// Option configures a WLS solve.
type Option func(*config)

type config struct {
	rankTol float64
}

// WithRankTol sets the absolute threshold below which a diagonal entry of R
// counts as zero. The default is eps·max(n, p)·max|R_jj|.
func WithRankTol(tol float64) Option {
	return func(c *config) {
		c.rankTol = tol
	}
}
