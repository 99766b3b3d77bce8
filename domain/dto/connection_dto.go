package dto

type ConnectWordPressRequest struct {
	BlogURL     string `json:"blog_url" binding:"required"`
	Username    string `json:"username" binding:"required"`
	AppPassword string `json:"app_password" binding:"required"`
}

type ConnectTistoryRequest struct {
	BlogName    string `json:"blog_name" binding:"required"`
	AccessToken string `json:"access_token" binding:"required"`
}
