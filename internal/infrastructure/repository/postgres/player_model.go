package postgres

type playerTableModel struct {
	ID                string  `db:"id"`
	TeamID            string  `db:"team_id"`
	Position          string  `db:"position"`
	WebName           string  `db:"web_name"`
	CostTenths        int     `db:"cost_tenths"`
	SelectedByPercent float64 `db:"selected_by_percent"`
}
