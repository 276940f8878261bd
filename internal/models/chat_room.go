package models

// ChatRoom is a room directory entry. Its ID (or Name) is the identifier
// clients pass to join_room.
type ChatRoom struct {
	BaseModel

	Name      string `gorm:"not null;uniqueIndex;size:128" json:"name"`
	IsGroup   bool   `gorm:"default:false" json:"is_group"`
	CreatedBy string `gorm:"size:128" json:"created_by,omitempty"`
}

// TableName keeps the table name stable regardless of the Go type name.
func (ChatRoom) TableName() string {
	return "chat_rooms"
}
