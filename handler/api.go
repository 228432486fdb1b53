// Copyright 2023-2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package handler contains the fiber HTTP handlers. Handlers only
// serialize core outputs; no valuation logic lives here.
package handler

import (
	"encoding/base64"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ledgerglass/lg-api/common"
)

type PingResponse struct {
	Status  string `json:"status" example:"success"`
	Message string `json:"message" example:"API is alive"`
	Time    string `json:"time" example:"2021-06-19T08:09:10.115924-05:00"`
}

func Ping(c *fiber.Ctx) error {
	var response PingResponse
	now, err := time.Now().MarshalText()
	if err != nil {
		log.Error().Err(err).Msg("error while getting time in ping")
		response = PingResponse{
			Status:  "error",
			Message: err.Error(),
			Time:    string(now),
		}
	} else {
		response = PingResponse{
			Status:  "success",
			Message: "API is alive",
			Time:    string(now),
		}
	}
	return c.JSON(response)
}

type apiKeyClaims struct {
	UserID string `json:"sub"`
}

// GetApiKey mints an encrypted apikey for the authenticated user. The
// result may be passed as the apikey query parameter or the X-Lg-Api
// header in place of a JWT.
func GetApiKey(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(string)
	if !ok || userID == "" {
		return fiber.ErrUnauthorized
	}

	jsonBytes, err := json.Marshal(apiKeyClaims{UserID: userID})
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not marshal apikey claims")
		return fiber.ErrInternalServerError
	}

	cipherBytes, err := common.Encrypt(jsonBytes)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not encrypt apikey")
		return fiber.ErrInternalServerError
	}

	return c.JSON(fiber.Map{
		"apikey": base64.URLEncoding.EncodeToString(cipherBytes),
	})
}
