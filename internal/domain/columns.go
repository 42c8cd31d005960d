package domain

// Order record column names as they appear in the source spreadsheets
const (
	ColOrderID           = "orden_id"
	ColCustomerID        = "id_único_de_cliente"
	ColPurchaseTimestamp = "orden_compra_timestamp_fecha"
	ColPrice             = "precio"
	ColFreightCost       = "costo_de_flete"
	ColVolume            = "volumen"
	ColItemsPerOrder     = "cantidad_productos_por_orden"
	ColProductCategory   = "categoria_nombre_producto"
	ColCategoryGroup     = "categoria_de_productos"
	ColRegion            = "region"
	ColCustomerState     = "estado_del_cliente"
	ColOrderStatus       = "estado_del_pedido"
	ColPaymentType       = "tipo_de_pago"
	ColInstallments      = "cuotas_de_pago"
	ColPayment           = "pago"
	ColProductID         = "numero_de_producto_id"
	ColPurchaseFrequency = "frecuencia_de_compra_cliente"
	ColCorrectedSequence = "secuencia_corregida"
	ColDeliveryClass     = "tipo_entrega_clase"
	ColDeliveryDays      = "tiempo_total_entrega_dias"
	ColTotalValue        = "valor_total"
	ColRetention         = "retencion"
	ColSimulatedDelivery = "entrega_simulada_dias"
	ColPredictedTier     = "tipo_entrega_predicho"
)
