package watch

// probeJS evaluates to one JSON page snapshot. Selector misses produce
// empty strings, never throws; resolution happens on the Go side.
const probeJS = `(() => {
  const text = (sel) => {
    const el = document.querySelector(sel);
    return el && el.textContent ? el.textContent.trim() : '';
  };
  const chart = document.querySelector('.chart-gui-wrapper canvas, .chart-markup-table');
  return JSON.stringify({
    title: document.title || '',
    legend: text('[data-name="legend-source-title"], [class*="titleWrapper"]'),
    toolbar: text('#header-toolbar-symbol-search, [id*="header-toolbar-symbol-search"]'),
    last_price: text('[class*="valueValue"], [class*="lastPrice"]'),
    url: location.href,
    cursor: chart ? getComputedStyle(chart).cursor : '',
    focused: document.hasFocus(),
    visible: document.visibilityState === 'visible'
  });
})()`
