/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import "math"

// PagingDetail describes a 1-based page request: PageSize items per page,
// PageNumber selecting the page.
type PagingDetail struct {
	PageSize   int `json:"page_size" yaml:"page_size"`
	PageNumber int `json:"page_number" yaml:"page_number"`
}

// NewPagingDetail constructs a PagingDetail.
func NewPagingDetail(pageSize int, pageNumber int) PagingDetail {
	return PagingDetail{PageSize: pageSize, PageNumber: pageNumber}
}

// Valid reports whether the request can select anything at all. A page size
// below one or a negative page number never does.
func (p PagingDetail) Valid() bool {
	return p.PageSize > 0 && p.PageNumber >= 0
}

// Offset returns the zero-based index of the first element on the page.
// Page 0 and page 1 both start at 0.
func (p PagingDetail) Offset() int {
	if !p.Valid() || p.PageNumber <= 1 {
		return 0
	}
	// saturate instead of wrapping; an offset this large is past any set
	if p.PageNumber-1 > math.MaxInt/p.PageSize {
		return math.MaxInt
	}
	return (p.PageNumber - 1) * p.PageSize
}

// Limit returns the maximum number of elements on the page.
func (p PagingDetail) Limit() int {
	if p.PageSize < 0 {
		return 0
	}
	return p.PageSize
}
