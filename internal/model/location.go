package model

// Location 活动场地 — 对应 locations
// 活动预约的 location 必须是启用中的场地名称，且场地承接该活动类型
type Location struct {
	LocationID    string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"location_id"`
	Name          string      `gorm:"type:varchar(100);not null"                     json:"name"`
	Address       string      `gorm:"type:varchar(200)"                              json:"address,omitempty"`
	ActivityTypes StringArray `gorm:"type:text[];not null;default:'{}'"              json:"activity_types"` // 空表示不限
	IsDefault     bool        `gorm:"not null;default:false"                         json:"is_default"`
	IsActive      bool        `gorm:"not null;default:true"                          json:"is_active"`
	SoftDeleteModel
}

// TableName 指定表名
func (Location) TableName() string { return "locations" }

// Hosts 场地是否承接该活动类型
func (l *Location) Hosts(t ActivityType) bool {
	if len(l.ActivityTypes) == 0 {
		return true
	}
	for _, s := range l.ActivityTypes {
		if ActivityType(s) == t {
			return true
		}
	}
	return false
}
