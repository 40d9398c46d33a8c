// Package domain models recent earthquakes and the map view built around them.
//
// # Data Sources
//
// Earthquake events come from the USGS FDSN event service
// (https://earthquake.usgs.gov/fdsnws/event/1/). The service is queried with
// an ISO-8601 time window and answers with a GeoJSON FeatureCollection:
//
//	properties.mag    magnitude (may be null)
//	properties.place  free-text location, e.g. "94 km SSE of Hihifo, Tonga"
//	properties.time   epoch milliseconds, UTC
//	properties.alert  PAGER alert tier: green, yellow, orange, red, or null
//	properties.title  display title, e.g. "M 6.1 - 94 km SSE of Hihifo, Tonga"
//	geometry.coordinates  [lon, lat, depth_km]
//
// The service cannot filter by alert tier, so every fetch returns the whole
// window and filtering happens here.
//
// Tectonic plate boundaries, plate polygons and active faults come from ArcGIS
// FeatureServer layers in EsriJSON. Geometries are requested in spatial
// reference 102100, which is the same planar Web Mercator used for display
// (EPSG:3857).
//
// # PAGER Alert Levels
//
// The Prompt Assessment of Global Earthquakes for Response (PAGER) system
// assigns each significant event an alert tier based on estimated fatalities
// and economic losses:
//
//	red     1,000+ fatalities   $1B+ losses
//	orange  100-999             $100M-$1B
//	yellow  1-99                $1M-$100M
//	green   0                   < $1M
//
// Events without a PAGER assessment are not shown on the map.
//
// # Display Coordinates
//
// Markers and extents use EPSG:3857 meters. Zoom level z maps to a resolution
// of 156543.03392804097 / 2^z meters per pixel, matching the default tile grid
// of common web map libraries.
package domain
