package postgres

type teamTableModel struct {
	ID              string `db:"id"`
	ShortName       string `db:"short_name"`
	Name            string `db:"name"`
	StrengthOverall int    `db:"strength_overall"`
	StrengthHome    int    `db:"strength_home"`
	StrengthAway    int    `db:"strength_away"`
}
