package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	StudentID string `json:"student_id" binding:"required,max=20"`
	Password  string `json:"password"   binding:"required,max=72"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RegisterRequest 学员自助注册请求，学号即登录账号
type RegisterRequest struct {
	Name      string `json:"name"       binding:"required,min=2,max=100"`
	StudentID string `json:"student_id" binding:"required,min=3,max=20"`
	Password  string `json:"password"   binding:"required,min=6,max=72"`
	Phone     string `json:"phone"      binding:"required,numeric,len=10"`
	Address   string `json:"address"    binding:"required,max=255"`
	Email     string `json:"email"      binding:"omitempty,email,max=255"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required,max=72"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=72"`
}

// UpdateProfileRequest 更新个人资料请求，仅更新非 nil 字段
type UpdateProfileRequest struct {
	Name    *string `json:"name"    binding:"omitempty,min=2,max=100"`
	Email   *string `json:"email"   binding:"omitempty,email,max=255"`
	Phone   *string `json:"phone"   binding:"omitempty,numeric,len=10"`
	Address *string `json:"address" binding:"omitempty,max=255"`
	Avatar  *string `json:"avatar"  binding:"omitempty,url,max=500"`
}
