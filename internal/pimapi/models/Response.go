package models

import "encoding/json"

// Response общий конверт ответа PIM API.
type Response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type SignInRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type SignInResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
	} `json:"data"`
}

type ProductListData struct {
	ProductElasticDtos []*Product `json:"productElasticDtos"`
	Total              int        `json:"total"`
}
