// Package marketindex is the client for the external market index open API
package marketindex

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// Item is one record of the paged open API response. All values arrive as
// source-formatted strings; dates use yyyyMMdd.
type Item struct {
	Classification     string `json:"idxCsf"`
	Name               string `json:"idxNm"`
	EmployedItemsCount string `json:"epyItmsCnt"`
	BasePointInTime    string `json:"basPntm"`
	BaseIndex          string `json:"basIdx"`
	ObservationDate    string `json:"basDt"`
	Open               string `json:"mkp"`
	Close              string `json:"clpr"`
	High               string `json:"hipr"`
	Low                string `json:"lopr"`
	Delta              string `json:"vs"`
	PercentChange      string `json:"fltRt"`
	TradedQuantity     string `json:"trqu"`
	TradedValue        string `json:"trPrc"`
	TotalMarketValue   string `json:"lstgMrktTotAmt"`
}

// NaturalKey returns the (classification, name) dedup key for the item
func (i Item) NaturalKey() string {
	return i.Classification + "\x00" + i.Name
}

// Filter narrows a paged fetch to a reference date or an inclusive date
// range, both in yyyyMMdd form.
type Filter struct {
	AsOfDate string
	DateFrom string
	DateTo   string
}

// Source is the narrow contract the ingestion pipelines consume. An empty
// item list signals the end of pages.
type Source interface {
	FetchPage(ctx context.Context, pageNo, pageSize int, filter Filter) ([]Item, error)
}

// apiResponse mirrors the open API envelope
type apiResponse struct {
	Response struct {
		Header struct {
			ResultCode string `json:"resultCode"`
			ResultMsg  string `json:"resultMsg"`
		} `json:"header"`
		Body struct {
			NumOfRows  int `json:"numOfRows"`
			PageNo     int `json:"pageNo"`
			TotalCount int `json:"totalCount"`
			Items      struct {
				Item []Item `json:"item"`
			} `json:"items"`
		} `json:"body"`
	} `json:"response"`
}

// Client fetches index reference data from the market index open API
type Client struct {
	baseURL    string
	serviceKey string
	http       *resty.Client
}

// NewClient creates a new market index API client
func NewClient(baseURL, serviceKey string) *Client {
	client := resty.New()
	client.SetTimeout(30 * time.Second)

	return &Client{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		http:       client,
	}
}

// FetchPage requests one page of index records. pageNo is 1-based.
func (c *Client) FetchPage(ctx context.Context, pageNo, pageSize int, filter Filter) ([]Item, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("serviceKey", c.serviceKey).
		SetQueryParam("resultType", "json").
		SetQueryParam("pageNo", strconv.Itoa(pageNo)).
		SetQueryParam("numOfRows", strconv.Itoa(pageSize)).
		SetResult(&apiResponse{})

	if filter.AsOfDate != "" {
		req.SetQueryParam("basDt", filter.AsOfDate)
	}
	if filter.DateFrom != "" {
		req.SetQueryParam("beginBasDt", filter.DateFrom)
	}
	if filter.DateTo != "" {
		req.SetQueryParam("endBasDt", filter.DateTo)
	}

	resp, err := req.Get(c.baseURL + "/getStockMarketIndex")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch index page %d: %v", pageNo, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("index source returned status %d for page %d", resp.StatusCode(), pageNo)
	}

	body, ok := resp.Result().(*apiResponse)
	if !ok {
		return nil, fmt.Errorf("failed to decode index source response for page %d", pageNo)
	}
	if code := body.Response.Header.ResultCode; code != "" && code != "00" {
		return nil, fmt.Errorf("index source rejected page %d: %s %s", pageNo, code, body.Response.Header.ResultMsg)
	}

	return body.Response.Body.Items.Item, nil
}
