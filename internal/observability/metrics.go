package observability

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
	MInvoicesCommitted       MetricKey = "invoices_committed_total"
	MInvoiceRevenue          MetricKey = "invoice_revenue_total"
	MLowStockEvents          MetricKey = "inventory_low_stock_total"
	MStockUnits              MetricKey = "inventory_stock_units"
	MProductsTracked         MetricKey = "inventory_products"
)
