/*
 * Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
 * Copyright 2024-2025 The StrataSTOR Authors and Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stratastor/zfskit/pkg/errors"
	"github.com/stratastor/zfskit/pkg/zfs/common"
)

// ErrorHandler renders the last handler error as JSON. KitErrors carry
// their own status; anything else is a 500.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last()

		var ke *errors.KitError
		if errors.As(err.Err, &ke) {
			status := ke.HTTPStatus
			if status == 0 {
				status = http.StatusInternalServerError
			}
			c.JSON(status, ke)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// APIError records err for ErrorHandler and stops the chain.
func APIError(c *gin.Context, err error) {
	c.Error(err)
	c.Abort()
}

// ValidateDatasetName rejects malformed "name" query parameters before a
// handler runs. Requests without the parameter pass through to binding.
func ValidateDatasetName() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Query("name")
		if name == "" {
			c.Next()
			return
		}
		if err := common.EntityNameCheck(name); err != nil {
			APIError(c, err)
			return
		}
		c.Next()
	}
}

func bindError(err error) error {
	return errors.New(errors.ServerRequestValidation, err.Error())
}
