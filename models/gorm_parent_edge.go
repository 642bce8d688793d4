package models

// ParentEdge is a directed parent -> child edge between two canonical
// persons. Unique per (parent, child); endpoints are plain IDs rather than
// foreign-key constrained associations because a partial crawl or prune may
// legitimately leave an edge pointing at a person row that no longer exists
// (the integrity auditor reports those as orphaned edges).
type ParentEdge struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ParentID  string `gorm:"not null;size:36;index;uniqueIndex:idx_parent_child,priority:1" json:"parent_id"`
	ChildID   string `gorm:"not null;size:36;index;uniqueIndex:idx_parent_child,priority:2" json:"child_id"`
	Source    string `gorm:"not null" json:"source"`
	CreatedAt int64  `gorm:"not null" json:"created_at"`
}

// TableName explicitly sets the table name for GORM.
func (ParentEdge) TableName() string {
	return "parent_edges"
}
