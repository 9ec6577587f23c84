// Package prommetrics exports classifier metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	c, _ := knn.New(knn.WithMetricsCollector(prommetrics.New(reg)))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package prommetrics
