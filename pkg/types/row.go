package types

// Row is one row of the theworks table: one reaction for one author
type Row struct {
	Entry       string `json:"entry"`
	Subentry    string `json:"subentry"`
	Pointer     string `json:"pointer"`
	Author      string `json:"author"`
	Reaction    string `json:"reaction"` // SimpleReaction.Text
	Projectile  string `json:"projectile"`
	Target      string `json:"target"`
	Quantity    string `json:"quantity"`
	Combination bool   `json:"combination"`
	Monitored   bool   `json:"monitored"`
}

// Values returns the row as insert arguments in column order
func (r Row) Values() []any {
	return []any{
		r.Entry, r.Subentry, r.Pointer, r.Author, r.Reaction,
		r.Projectile, r.Target, r.Quantity, r.Combination, r.Monitored,
	}
}
