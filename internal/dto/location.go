package dto

// ── 活动场地 DTO ──

// LocationURI 场地路径参数
type LocationURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// CreateLocationRequest 新增场地请求
// activity_types 为空表示该场地承接所有活动类型
type CreateLocationRequest struct {
	Name          string   `json:"name"           binding:"required,min=2,max=100"`
	Address       string   `json:"address"        binding:"omitempty,max=200"`
	ActivityTypes []string `json:"activity_types" binding:"omitempty,dive,activitytype"`
	IsDefault     bool     `json:"is_default"`
}

// UpdateLocationRequest 更新场地请求，仅更新非 nil 字段
type UpdateLocationRequest struct {
	Name          *string   `json:"name"           binding:"omitempty,min=2,max=100"`
	Address       *string   `json:"address"        binding:"omitempty,max=200"`
	ActivityTypes *[]string `json:"activity_types" binding:"omitempty,dive,activitytype"`
	IsDefault     *bool     `json:"is_default"`
	IsActive      *bool     `json:"is_active"`
}

// LocationListRequest 场地列表查询参数
type LocationListRequest struct {
	ActivityType    string `form:"activity_type"    binding:"omitempty,activitytype"`
	IncludeInactive bool   `form:"include_inactive"`
}

// LocationResponse 场地信息
type LocationResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Address       string   `json:"address,omitempty"`
	ActivityTypes []string `json:"activity_types"`
	IsDefault     bool     `json:"is_default"`
	IsActive      bool     `json:"is_active"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}
