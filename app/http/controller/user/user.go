// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package user

import (
	"github.com/gin-gonic/gin"

	usermodel "github.com/leoscope/leoscope/app/model/user"
	"github.com/leoscope/leoscope/app/pkg/apperr"
	"github.com/leoscope/leoscope/app/pkg/e"
)

type (
	registerParams struct {
		Name string         `json:"name" binding:"required"`
		Role usermodel.Role `json:"role" binding:"required"`
		Team string         `json:"team"`
	}

	registerResponse struct {
		ID          string `json:"id"`
		StaticToken string `json:"static_token"`
	}

	modifyParams struct {
		Name string `json:"name"`
		Team string `json:"team"`
	}
)

// Register handles register_user. Only ADMIN may call it (router-level
// RequireRole gate).
func (h handler) Register() gin.HandlerFunc {
	return func(c *gin.Context) {
		var params registerParams
		var data *registerResponse

		errCode := int(e.InvalidParams)
		err := c.ShouldBindJSON(&params)

		if err == nil {
			var u *usermodel.User
			var token string
			u, token, err = h.svc.RegisterUser(h.ctx(c), params.Name, params.Role, params.Team)
			errCode = int(apperr.CodeOf(err))
			if err == nil {
				data = &registerResponse{ID: u.ID, StaticToken: token}
			}
		}

		h.i18n.JSON(c, errCode, data, err)
	}
}

// Modify handles modify_user.
func (h handler) Modify() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		var params modifyParams

		errCode := int(e.InvalidParams)
		err := c.ShouldBindJSON(&params)
		if err == nil {
			values := map[string]interface{}{}
			if params.Name != "" {
				values["name"] = params.Name
			}
			if params.Team != "" {
				values["team"] = params.Team
			}
			err = h.svc.ModifyUser(h.ctx(c), id, values)
			errCode = int(apperr.CodeOf(err))
		}

		h.i18n.JSON(c, errCode, nil, err)
	}
}

// Delete handles delete_user.
func (h handler) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		err := h.svc.DeleteUser(h.ctx(c), id)
		h.i18n.JSON(c, int(apperr.CodeOf(err)), nil, err)
	}
}
