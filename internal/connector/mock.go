// Copyright © 2024 KubeStack-AI Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package connector

import (
	"database/sql"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/pii-scanner/pii-scanner/internal/core/interfaces"
)

// NewMockConnector wraps a go-sqlmock-backed *sql.DB as an
// interfaces.Connector for sampler/pipeline tests that need a
// deterministic result set without a real database.
func NewMockConnector(db *sql.DB, productName, version string) *SQLConnector {
	return &SQLConnector{db: db, productName: productName, version: version}
}

// NewMock creates a fresh sqlmock database/expectation pair, using
// regexp query matching over exact-string matching, since generated
// SQL commonly differs in whitespace from the expectation.
func NewMock() (*sql.DB, sqlmock.Sqlmock, error) {
	return sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
}

var _ interfaces.Connector = (*SQLConnector)(nil)
