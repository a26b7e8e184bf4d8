package models

import "time"

// Lead is one public web lead.
type Lead struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:128;not null"`
	Contact   string `gorm:"size:128;not null"`
	Message   string `gorm:"type:text"`
	VIN       string `gorm:"size:17;index"`
	CreatedAt time.Time
}

// Upload is one client attachment received via the upload endpoint and
// referenced by id from ws command frames.
type Upload struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	UploadID  string `gorm:"size:36;uniqueIndex;not null"`
	FileName  string `gorm:"size:256;not null"`
	ByteSize  int64
	MIME      string `gorm:"size:128"`
	Path      string `gorm:"size:512"`
	UserID    string `gorm:"size:64;index"`
	CreatedAt time.Time
}
