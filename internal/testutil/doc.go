// SPDX-License-Identifier: MPL-2.0

// Package testutil provides test helpers that fail the test on error instead
// of returning it, plus builders for content sources: directories and zip
// archives holding rule documents at assets/<source id>/ucwdefs/.
package testutil
