package watch

// bindingName is the CDP binding the page script calls to deliver events.
const bindingName = "__tvTrackerEmit"

// bootstrapJS runs inside the chart page. It distills DOM mutations into
// small node summaries, reports pointer gestures with the cursor style at
// press time, and reports visibility changes. Batches are coalesced for
// batchDelayMs so a single user action arrives as one event.
const bootstrapJS = `(() => {
  if (window.__tvTrackerBootstrapped) return;
  window.__tvTrackerBootstrapped = true;

  const batchDelayMs = 500;
  const settleDelayMs = 250;

  const emit = (payload) => {
    try {
      window.` + bindingName + `(JSON.stringify(payload));
    } catch (e) { /* binding gone, page is detaching */ }
  };

  const summarize = (el) => {
    const ancestors = [];
    let p = el.parentElement;
    for (let depth = 0; p && depth < 6; depth++) {
      if (typeof p.className === 'string' && p.className) ancestors.push(p.className);
      const dn = p.getAttribute && p.getAttribute('data-name');
      if (dn) ancestors.push(dn);
      p = p.parentElement;
    }
    const label = (el.textContent || '').trim().slice(0, 120);
    return {
      tag: el.tagName ? el.tagName.toLowerCase() : '',
      class: typeof el.className === 'string' ? el.className : '',
      data_name: (el.getAttribute && el.getAttribute('data-name')) || '',
      data_value: (el.getAttribute && el.getAttribute('data-value')) || '',
      ancestors: ancestors.join(' '),
      label: label
    };
  };

  let added = [];
  let removed = [];
  let flushTimer = null;

  const flush = () => {
    flushTimer = null;
    if (!added.length && !removed.length) return;
    emit({ type: 'mutations', added: added, removed: removed });
    added = [];
    removed = [];
  };

  const observer = new MutationObserver((mutations) => {
    for (const m of mutations) {
      for (const n of m.addedNodes) {
        if (n.nodeType === 1 && added.length < 40) added.push(summarize(n));
      }
      for (const n of m.removedNodes) {
        if (n.nodeType === 1 && removed.length < 40) removed.push(summarize(n));
      }
    }
    if (!flushTimer) flushTimer = setTimeout(flush, batchDelayMs);
  });
  observer.observe(document.body, { childList: true, subtree: true });

  const cursorAt = (e) => {
    const el = e && e.target instanceof Element ? e.target : document.body;
    return getComputedStyle(el).cursor || '';
  };

  document.addEventListener('mousedown', (e) => {
    emit({ type: 'pointerdown', cursor: cursorAt(e) });
  }, true);

  document.addEventListener('mouseup', (e) => {
    const cursor = cursorAt(e);
    setTimeout(() => emit({ type: 'pointerup', cursor: cursor }), settleDelayMs);
  }, true);

  document.addEventListener('visibilitychange', () => {
    emit({ type: 'visibility', visible: document.visibilityState === 'visible' });
  });
})();`
