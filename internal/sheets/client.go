// Package sheets wraps the Google Sheets API behind the narrow surface the
// store adapter needs: tab creation, ranged reads and RAW writes against a
// single worksheet.
package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// Client operates on one tab of one spreadsheet with service-account
// credentials. Construct once at process start and share across requests.
type Client struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	tab           string
}

func NewClient(ctx context.Context, spreadsheetID, tab, credentialsFile string) (*Client, error) {
	opts := []option.ClientOption{
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		tab:           tab,
	}, nil
}

// EnsureTab creates the worksheet tab when it does not exist yet, with the
// given grid size. Returns whether it was created.
func (c *Client) EnsureTab(ctx context.Context, rows, cols int64) (bool, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("open spreadsheet %s: %w", c.spreadsheetID, err)
	}

	for _, sheet := range ss.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == c.tab {
			return false, nil
		}
	}

	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{
					Title: c.tab,
					GridProperties: &sheetsapi.GridProperties{
						RowCount:    rows,
						ColumnCount: cols,
					},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return false, fmt.Errorf("create tab %s: %w", c.tab, err)
	}
	return true, nil
}

// HeaderRow returns the first row of the tab, empty when the tab is blank.
func (c *Client) HeaderRow(ctx context.Context) ([]string, error) {
	rows, err := c.values(ctx, fmt.Sprintf("%s!1:1", c.tab))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Column returns all values of one zero-based column, header included.
func (c *Client) Column(ctx context.Context, index int) ([]string, error) {
	letter := columnLetter(index)
	rows, err := c.values(ctx, fmt.Sprintf("%s!%s:%s", c.tab, letter, letter))
	if err != nil {
		return nil, err
	}
	column := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) > 0 {
			column = append(column, row[0])
		} else {
			column = append(column, "")
		}
	}
	return column, nil
}

// Rows returns the full used range of the tab.
func (c *Client) Rows(ctx context.Context) ([][]string, error) {
	return c.values(ctx, c.tab)
}

// Append adds one row after the current data range with RAW value semantics,
// so cell contents are never interpreted as formulas or locale numbers.
func (c *Client) Append(ctx context.Context, row []string) error {
	vr := &sheetsapi.ValueRange{Values: [][]interface{}{toInterfaces(row)}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.tab, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row to %s: %w", c.tab, err)
	}
	return nil
}

// UpdateHeader overwrites the first row in place, leaving data rows alone.
func (c *Client) UpdateHeader(ctx context.Context, header []string) error {
	vr := &sheetsapi.ValueRange{Values: [][]interface{}{toInterfaces(header)}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("%s!A1", c.tab), vr).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update header of %s: %w", c.tab, err)
	}
	return nil
}

func (c *Client) values(ctx context.Context, rangeA1 string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rangeA1).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", rangeA1, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, fmt.Sprint(cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func toInterfaces(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, cell := range row {
		out[i] = cell
	}
	return out
}

// columnLetter converts a zero-based column index to its A1 letter,
// e.g. 0 -> A, 25 -> Z, 26 -> AA.
func columnLetter(index int) string {
	letter := ""
	for index >= 0 {
		letter = string(rune('A'+index%26)) + letter
		index = index/26 - 1
	}
	return letter
}
