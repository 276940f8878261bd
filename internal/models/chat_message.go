package models

// ChatMessage is an archived copy of a relayed chat message.
type ChatMessage struct {
	BaseModel

	Room       string `gorm:"not null;index;size:128" json:"room"`
	Author     string `gorm:"size:128" json:"author"`
	SenderID   string `gorm:"size:128;index" json:"sender_id,omitempty"`
	Text       string `gorm:"type:text" json:"message"`
	ClientTime string `gorm:"size:64" json:"time"`
}

// TableName keeps the table name stable regardless of the Go type name.
func (ChatMessage) TableName() string {
	return "chat_messages"
}
