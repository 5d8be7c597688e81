package standings

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithPointsTable sets the points awarded by finishing position. An empty
// table or one with negative values is ignored.
func WithPointsTable(table []int) Option {
	return func(c *Calculator) {
		if len(table) == 0 {
			return
		}
		for _, p := range table {
			if p < 0 {
				return
			}
		}
		c.table = append(PointsTable(nil), table...)
	}
}
